// Package cpf validates and formats Brazilian individual tax identifiers.
package cpf

import "strings"

const cpfLength = 11

// Clean strips every non-digit character from the input.
func Clean(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders up to 11 digits in the ###.###.###-## mask, inserting
// separators progressively as digits accumulate. Extra digits are dropped.
func Format(input string) string {
	digits := Clean(input)
	if len(digits) > cpfLength {
		digits = digits[:cpfLength]
	}

	var b strings.Builder
	for i, r := range digits {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsValid reports whether the input is a structurally valid CPF: 11 digits,
// not an all-identical sequence, with both mod-11 check digits matching.
func IsValid(input string) bool {
	digits := Clean(input)
	if len(digits) != cpfLength {
		return false
	}
	if allIdentical(digits) {
		return false
	}

	if checkDigit(digits[:9], 10) != int(digits[9]-'0') {
		return false
	}
	if checkDigit(digits[:10], 11) != int(digits[10]-'0') {
		return false
	}
	return true
}

func allIdentical(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// checkDigit computes a mod-11 check digit over the prefix using descending
// weights starting at firstWeight; remainders 10 and 11 collapse to 0.
func checkDigit(prefix string, firstWeight int) int {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (firstWeight - i)
	}
	digit := 11 - sum%11
	if digit >= 10 {
		return 0
	}
	return digit
}
