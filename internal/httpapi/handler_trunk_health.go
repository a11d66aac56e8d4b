package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"voip-router/internal/trunkhealth"
)

const maxReportBytes = 64 << 10

type trunkHealthResponse struct {
	Changed bool `json:"changed"`
}

func TrunkHealthHandler(pool trunkhealth.TxStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid body")
			return
		}

		report, err := trunkhealth.Parse(body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid report")
			return
		}

		changed, err := trunkhealth.Apply(r.Context(), pool, report)
		switch {
		case errors.Is(err, trunkhealth.ErrUnknownTrunk):
			writeJSONError(w, http.StatusNotFound, "unknown trunk")
			return
		case err != nil:
			slog.Error("failed to apply trunk health report", "tenant_id", report.TenantID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to apply report")
			return
		}

		writeJSON(w, http.StatusOK, trunkHealthResponse{Changed: changed})
	}
}
