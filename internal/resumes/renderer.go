package resumes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	pkgerrors "github.com/boostcv/backend/pkg/errors"
)

// Template selects the visual treatment of the rendered resume.
type Template string

const (
	TemplateClassic Template = "classic"
	TemplateModern  Template = "modern"
)

const watermarkText = "BOOSTCV - VERSAO GRATUITA"

// ResumeData is the structured content of a resume as captured by the
// builder frontend.
type ResumeData struct {
	FullName    string       `json:"fullName"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Headline    string       `json:"headline"`
	Summary     string       `json:"summary"`
	Experiences []Experience `json:"experiences"`
	Education   []Education  `json:"education"`
	Skills      []string     `json:"skills"`
}

// Experience is one professional entry.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

// Education is one academic entry.
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Period      string `json:"period"`
}

// ParseData decodes the raw resume payload stored on a lead or posted by the
// download endpoint.
func ParseData(raw json.RawMessage) (*ResumeData, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resume data is required")
	}
	var data ResumeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode resume data")
	}
	if strings.TrimSpace(data.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resume full name is required")
	}
	return &data, nil
}

// Render produces the resume PDF. The watermarked variant is the degraded
// artifact served to unauthorized callers; the clean one only leaves the
// building after a ledger grant.
func Render(data *ResumeData, template Template, watermarked bool) ([]byte, error) {
	if data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resume data is required")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(data.FullName, false)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	accent := accentColor(template)

	pdf.SetTextColor(accent.r, accent.g, accent.b)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 10, tr(data.FullName), "", 1, "L", false, 0, "")

	pdf.SetTextColor(60, 60, 60)
	if data.Headline != "" {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.CellFormat(0, 7, tr(data.Headline), "", 1, "L", false, 0, "")
	}
	contact := contactLine(data)
	if contact != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(contact), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if data.Summary != "" {
		writeSectionTitle(pdf, tr, accent, "Resumo")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(data.Summary), "", "L", false)
		pdf.Ln(3)
	}

	if len(data.Experiences) > 0 {
		writeSectionTitle(pdf, tr, accent, "Experiência")
		for _, exp := range data.Experiences {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, 6, tr(exp.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			meta := exp.Company
			if exp.Period != "" {
				meta = fmt.Sprintf("%s | %s", meta, exp.Period)
			}
			pdf.CellFormat(0, 5, tr(meta), "", 1, "L", false, 0, "")
			if exp.Description != "" {
				pdf.MultiCell(0, 5, tr(exp.Description), "", "L", false)
			}
			pdf.Ln(2)
		}
	}

	if len(data.Education) > 0 {
		writeSectionTitle(pdf, tr, accent, "Formação")
		for _, edu := range data.Education {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, 6, tr(edu.Degree), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			meta := edu.Institution
			if edu.Period != "" {
				meta = fmt.Sprintf("%s | %s", meta, edu.Period)
			}
			pdf.CellFormat(0, 5, tr(meta), "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
	}

	if len(data.Skills) > 0 {
		writeSectionTitle(pdf, tr, accent, "Habilidades")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(strings.Join(data.Skills, " · ")), "", "L", false)
	}

	if watermarked {
		applyWatermark(pdf, tr)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render resume pdf")
	}
	return buf.Bytes(), nil
}

func contactLine(data *ResumeData) string {
	parts := make([]string, 0, 2)
	if data.Email != "" {
		parts = append(parts, data.Email)
	}
	if data.Phone != "" {
		parts = append(parts, data.Phone)
	}
	return strings.Join(parts, " | ")
}

type rgb struct {
	r, g, b int
}

func accentColor(template Template) rgb {
	switch template {
	case TemplateModern:
		return rgb{r: 13, g: 110, b: 253}
	default:
		return rgb{r: 33, g: 37, b: 41}
	}
}

func writeSectionTitle(pdf *fpdf.Fpdf, tr func(string) string, accent rgb, title string) {
	pdf.SetTextColor(accent.r, accent.g, accent.b)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetTextColor(60, 60, 60)
}

// applyWatermark stamps a diagonal banner across the page so the free
// artifact is unmistakably the free artifact.
func applyWatermark(pdf *fpdf.Fpdf, tr func(string) string) {
	w, h := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "B", 40)
	pdf.SetTextColor(210, 210, 210)
	pdf.SetAlpha(0.4, "Normal")
	pdf.TransformBegin()
	pdf.TransformRotate(45, w/2, h/2)
	pdf.SetXY(w/2-90, h/2)
	pdf.CellFormat(180, 20, tr(watermarkText), "", 0, "C", false, 0, "")
	pdf.TransformEnd()
	pdf.SetAlpha(1, "Normal")
}
