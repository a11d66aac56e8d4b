package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"voip-router/internal/ivr"
	"voip-router/internal/models"
)

type ivrMenuRequest struct {
	Name          string                   `json:"name"`
	Extension     string                   `json:"extension"`
	GreetingSound string                   `json:"greeting_sound"`
	InvalidSound  string                   `json:"invalid_sound"`
	ExitSound     string                   `json:"exit_sound"`
	Timeout       int                      `json:"timeout"`
	MaxFailures   int                      `json:"max_failures"`
	Options       map[string]models.Action `json:"options"`
	TimeoutAction models.Action            `json:"timeout_action"`
	InvalidAction models.Action            `json:"invalid_action"`
}

type validationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// IvrValidateHandler checks a menu definition before an admin tool saves it.
func IvrValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var req ivrMenuRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxReportBytes)).Decode(&req); err != nil {
			if errors.Is(err, models.ErrConfigInvalid) {
				writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: []string{err.Error()}})
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid body")
			return
		}

		menu := &models.IvrMenu{
			Name:          req.Name,
			Extension:     req.Extension,
			GreetingSound: req.GreetingSound,
			InvalidSound:  req.InvalidSound,
			ExitSound:     req.ExitSound,
			Timeout:       req.Timeout,
			MaxFailures:   req.MaxFailures,
			Options:       req.Options,
			TimeoutAction: req.TimeoutAction,
			InvalidAction: req.InvalidAction,
		}

		err := ivr.Validate(menu)
		if err == nil {
			writeJSON(w, http.StatusOK, validationResponse{Valid: true})
			return
		}

		res := validationResponse{}
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				res.Errors = append(res.Errors, e.Error())
			}
		} else {
			res.Errors = []string{err.Error()}
		}
		writeJSON(w, http.StatusUnprocessableEntity, res)
	}
}
