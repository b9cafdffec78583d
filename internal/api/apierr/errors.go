package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/chiptourney/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeValidation              = "VALIDATION_FAILED"
	CodeTournamentNotFound      = "TOURNAMENT_NOT_FOUND"
	CodePlayerNotFound          = "PLAYER_NOT_FOUND"
	CodeMatchNotFound           = "MATCH_NOT_FOUND"
	CodeNotFound                = "NOT_FOUND"
	CodeQueueExhausted          = "QUEUE_EXHAUSTED"
	CodePairingConstraint       = "PAIRING_CONSTRAINT"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeAlreadyFinalized        = "ALREADY_FINALIZED"
	CodeMatchNotActive          = "MATCH_NOT_ACTIVE"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeMatchesInFlight         = "MATCHES_IN_FLIGHT"
	CodeQualificationIncomplete = "QUALIFICATION_INCOMPLETE"
	CodeUnsupportedMediaType    = "UNSUPPORTED_MEDIA_TYPE"
	CodeInternalError           = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Validation messages describe the bad input, so pass them through
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, APIError{CodeValidation, err.Error()}}

	// Specific lookups before the generic not found
	case errors.Is(err, model.ErrTournamentNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTournamentNotFound, "Tournament not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}

	case errors.Is(err, model.ErrQueueExhausted):
		return &httpError{http.StatusConflict, APIError{CodeQueueExhausted, "Fewer than two players available"}}
	case errors.Is(err, model.ErrPairingConstraint):
		return &httpError{http.StatusConflict, APIError{CodePairingConstraint, "No legal pair remains"}}
	case errors.Is(err, model.ErrConcurrencyConflict):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeConcurrencyConflict, "Concurrent update, retry the request"}}
	case errors.Is(err, model.ErrAlreadyFinalized):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyFinalized, "Tournament is already finalized"}}
	case errors.Is(err, model.ErrMatchNotActive):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotActive, "Match is not pending or active"}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{CodeInvalidTransition, "Invalid status transition"}}
	case errors.Is(err, model.ErrMatchesInFlight):
		return &httpError{http.StatusConflict, APIError{CodeMatchesInFlight, "Matches are still pending or active"}}
	case errors.Is(err, model.ErrQualificationIncomplete):
		return &httpError{http.StatusConflict, APIError{CodeQualificationIncomplete, "Qualification rounds not complete"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewUnsupportedMediaTypeError rejects a body that is not JSON
func NewUnsupportedMediaTypeError() error {
	return &httpError{http.StatusUnsupportedMediaType, APIError{CodeUnsupportedMediaType, "Request body must be application/json"}}
}
