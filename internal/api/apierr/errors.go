package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/quizgame/internal/model"
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

// Codes produced by the API layer itself. Game errors keep their own codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
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

// clientErrorStatus maps game error codes to HTTP status. Unlisted client
// errors are conflicts with the current game state.
var clientErrorStatus = map[string]int{
	model.ErrGameNotFound.Code:     http.StatusNotFound,
	model.ErrPlayerNotFound.Code:   http.StatusNotFound,
	model.ErrSessionNotFound.Code:  http.StatusNotFound,
	model.ErrPackageNotFound.Code:  http.StatusNotFound,
	model.ErrQuestionNotFound.Code: http.StatusNotFound,
	model.ErrThemeNotFound.Code:    http.StatusNotFound,

	model.ErrUnknownAction.Code:  http.StatusBadRequest,
	model.ErrReservedAction.Code: http.StatusBadRequest,
	model.ErrInvalidPayload.Code: http.StatusBadRequest,
	model.ErrInvalidPackage.Code: http.StatusBadRequest,
	model.ErrInvalidBid.Code:     http.StatusBadRequest,

	model.ErrNotShowman.Code:       http.StatusForbidden,
	model.ErrNotPlayer.Code:        http.StatusForbidden,
	model.ErrNotYourTurn.Code:      http.StatusForbidden,
	model.ErrPlayerRestricted.Code: http.StatusForbidden,
	model.ErrPlayerBanned.Code:     http.StatusForbidden,
	model.ErrWrongPassword.Code:    http.StatusForbidden,
	model.ErrCannotTargetSelf.Code: http.StatusForbidden,
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	if ce, ok := model.AsClientError(err); ok {
		status, ok := clientErrorStatus[ce.Code]
		if !ok {
			status = http.StatusConflict
		}
		return &httpError{status, APIError{ce.Code, ce.Message}}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
