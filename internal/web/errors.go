package web

// errors.go provides unified error responses for the API.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to a user message and support code
//  4. The status is chosen from the code; the technical error is logged
//     with the request ID for correlation
//  5. The user message is written as JSON

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/catalogrecon/internal/core"
	"github.com/JonMunkholm/catalogrecon/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusByCode maps support codes to HTTP statuses. Unlisted codes are 500.
var statusByCode = map[string]int{
	"SRC001":  http.StatusConflict,
	"SRC002":  http.StatusUnprocessableEntity,
	"SRC003":  http.StatusNotFound,
	"COL001":  http.StatusUnprocessableEntity,
	"COL002":  http.StatusBadRequest,
	"QRY001":  http.StatusConflict,
	"QRY002":  http.StatusBadRequest,
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE002": http.StatusBadRequest,
	"FILE003": http.StatusBadRequest,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusBadRequest,
	"FILE006": http.StatusUnsupportedMediaType,
	"FILE007": http.StatusBadRequest,
	"FILE008": http.StatusBadRequest,
	"UPL001":  http.StatusServiceUnavailable,
	"UPL002":  499,
	"UPL003":  http.StatusGatewayTimeout,
	"SES001":  http.StatusNotFound,
	"SES002":  http.StatusServiceUnavailable,
	"RATE001": http.StatusTooManyRequests,
}

func statusFor(msg core.UserMessage) int {
	if status, ok := statusByCode[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error server-side and writes the mapped
// user message with a status derived from its code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(userMsg)

	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondErrorJSON(w, userMsg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
