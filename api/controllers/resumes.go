package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boostcv/backend/api/responses"
	"github.com/boostcv/backend/api/validators"
	"github.com/boostcv/backend/internal/downloads"
	"github.com/boostcv/backend/internal/resumes"
	"github.com/boostcv/backend/pkg/logger"
)

// DownloadAuthorizer is the ledger surface the download endpoint uses.
type DownloadAuthorizer interface {
	Authorize(ctx context.Context, token downloads.Token) (downloads.Decision, error)
}

type downloadResumeRequest struct {
	PaymentID  string          `json:"paymentId" validate:"omitempty,max=128"`
	Template   string          `json:"template" validate:"omitempty,oneof=classic modern"`
	ResumeData json.RawMessage `json:"resumeData" validate:"required"`
}

// DownloadResume renders the resume PDF. The ledger decision picks the
// artifact: a grant gets the clean document, everything else gets the
// watermarked one. Ledger trouble downgrades the artifact rather than
// failing the request.
func DownloadResume(authorizer DownloadAuthorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req downloadResumeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		data, err := resumes.ParseData(req.ResumeData)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		decision, err := authorizer.Authorize(ctx, downloads.ParseToken(req.PaymentID))
		if err != nil {
			// An errored authorization always serves the watermarked
			// artifact, whatever decision the ledger managed to return.
			decision.Watermarked = true
			if logg != nil {
				logg.Error(ctx, "download authorization degraded", err)
			}
		}

		artifact, err := resumes.Render(data, resumes.Template(req.Template), decision.Watermarked)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"authorized":  decision.Authorized,
				"watermarked": decision.Watermarked,
				"reason":      decision.Reason,
			})
			logg.Info(logCtx, "resume download served")
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="curriculo.pdf"`)
		w.Header().Set("Content-Length", fmt.Sprint(len(artifact)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(artifact); err != nil && logg != nil {
			logg.Error(ctx, "failed to stream resume pdf", err)
		}
	}
}
