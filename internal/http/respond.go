package httpserver

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/mywatchlist/internal/auth"
	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/logging"
	"github.com/Clark-Hu/mywatchlist/internal/validation"
)

const (
	maxRequestBody = 1 << 20 // 1 MiB

	// statusClientClosedRequest is the nginx convention for a caller that
	// went away before the response was ready.
	statusClientClosedRequest = 499
)

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger := logging.FromContext(r.Context(), s.logger)
			logger.Warn().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.respondJSON(w, r, status, errorResponse{Code: code, Message: message})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps a domain error kind onto its status code. Store
// failures are logged; their causes never reach the client.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		s.respondJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Details: verr.Fields,
		})
		return
	case errors.Is(err, domain.ErrAggregateInconsistency):
		s.logFailure(r, err, action)
		s.respondError(w, r, http.StatusInternalServerError, "AGGREGATE_INCONSISTENT", "Rating saved but the title aggregate could not be updated")
		return
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	case errors.Is(err, domain.ErrValidation):
		s.respondError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	case errors.Is(err, domain.ErrConflict):
		s.respondError(w, r, http.StatusConflict, "CONFLICT", "Resource already exists")
		return
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		s.respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password")
		return
	case errors.Is(err, domain.ErrCanceled):
		logger := logging.FromContext(r.Context(), s.logger)
		logger.Debug().Err(err).Str("action", action).Msg("request canceled")
		s.respondError(w, r, statusClientClosedRequest, "CANCELED", "Request canceled")
		return
	}

	s.logFailure(r, err, action)
	switch {
	case errors.Is(err, domain.ErrTimeout):
		s.respondError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Failed to "+action+": store timed out")
	case errors.Is(err, domain.ErrStoreUnavailable):
		s.respondError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Failed to "+action)
	default:
		s.respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}

func (s *Server) logFailure(r *http.Request, err error, action string) {
	logger := logging.FromContext(r.Context(), s.logger)
	logger.Error().Err(err).Str("action", action).Msg("request failed")
}

func roundToOneDecimal(value *float64) *float64 {
	if value == nil {
		return nil
	}
	rounded := math.Round(*value*10) / 10
	return &rounded
}
