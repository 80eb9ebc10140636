package web

import (
	"net/http"

	"github.com/JonMunkholm/attendee-import/internal/core"
	"github.com/JonMunkholm/attendee-import/internal/logging"
)

// ErrorResponse is the JSON body of every API error. It carries the import
// outcome fields with one synthetic error entry, so a failed analysis reads
// the same way as a failed commit.
type ErrorResponse struct {
	core.ImportOutcome
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// statusByCode maps user-facing error codes to HTTP status codes.
// Codes not listed here are server errors.
var statusByCode = map[string]int{
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE002": http.StatusBadRequest,
	"FILE003": http.StatusBadRequest,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusBadRequest,
	"FILE006": http.StatusUnsupportedMediaType,
	"EVT001":  http.StatusBadRequest,
	"EVT002":  http.StatusConflict,
	"CLS001":  http.StatusBadGateway,
	"IMP001":  http.StatusConflict,
	"IMP002":  http.StatusServiceUnavailable,
	"IMP003":  http.StatusNotFound,
	"IMP004":  http.StatusNotFound,
	"IMP006":  http.StatusGatewayTimeout,
	"VAL001":  http.StatusBadRequest,
	"VAL002":  http.StatusBadRequest,
	"RATE001": http.StatusTooManyRequests,
	"DB004":   http.StatusServiceUnavailable,
}

// statusFor picks the HTTP status for a mapped error.
func statusFor(msg core.UserMessage) int {
	if status, ok := statusByCode[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(msg)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Info("request rejected")
	}

	writeJSON(w, status, ErrorResponse{
		ImportOutcome: failureOutcome(err),
		Error:         msg.Message,
		Action:        msg.Action,
		Code:          msg.Code,
	})
}

func failureOutcome(err error) core.ImportOutcome {
	return core.ImportOutcome{
		ErrorCount:  1,
		Errors:      []core.ImportError{{Reason: core.FormatUserError(err)}},
		SkippedRows: []core.SkippedRow{},
	}
}
