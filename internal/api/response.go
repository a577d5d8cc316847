package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"portfoliotracker/pkg/portfolio"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int               `json:"code"`
	Message string            `json:"message,omitempty"`
	Notice  *portfolio.Notice `json:"notice,omitempty"`
	Data    any               `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Data: data})
}

// writeNotice writes a command outcome. An empty notice is omitted.
func writeNotice(w http.ResponseWriter, notice portfolio.Notice, data any) {
	resp := Response{Code: 0, Data: data}
	if notice.Message != "" {
		resp.Message = notice.Message
		resp.Notice = &notice
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeErrorResponse writes an error with the HTTP status implied by its code.
// Only the user-facing message is exposed.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorMessage(w, r, err, portfolio.UserMessage(err))
}

// writeNoticeError writes a failed command using its notice text.
func writeNoticeError(w http.ResponseWriter, r *http.Request, notice portfolio.Notice, err error) {
	message := notice.Message
	if message == "" {
		message = portfolio.UserMessage(err)
	}
	writeErrorMessage(w, r, err, message)
}

func writeErrorMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := http.StatusInternalServerError
	response := ErrorResponse{Message: message}

	var pErr *portfolio.Error
	if errors.As(err, &pErr) {
		response.ErrorCode = string(pErr.Code)
		status = mapErrorCodeToHTTPStatus(pErr.Code)
	}
	response.Code = status
	if r != nil {
		response.RequestID = middleware.GetReqID(r.Context())
	}
	if err != nil {
		recordError(w, err.Error())
	}
	writeJSON(w, status, response)
}

// writeError writes a plain error for failures outside the domain, such as
// malformed requests.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	response := ErrorResponse{Code: status, Message: message}
	if r != nil {
		response.RequestID = middleware.GetReqID(r.Context())
	}
	recordError(w, message)
	writeJSON(w, status, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code portfolio.ErrorCode) int {
	switch code {
	case portfolio.ErrCodeInvalidInput, portfolio.ErrCodeValidation:
		return http.StatusBadRequest
	case portfolio.ErrCodeNotFound:
		return http.StatusNotFound
	case portfolio.ErrCodeAuth:
		return http.StatusUnauthorized
	case portfolio.ErrCodeFetch, portfolio.ErrCodePersistence:
		return http.StatusBadGateway
	case portfolio.ErrCodeDatabase, portfolio.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
