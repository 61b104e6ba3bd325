// Package response writes the uniform JSON envelopes every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"go.uber.org/zap"
)

// Envelope is the success body.
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorEnvelope is the failure body. Data is always null.
type ErrorEnvelope struct {
	StatusCode int          `json:"statusCode"`
	Data       interface{}  `json:"data"`
	Message    string       `json:"message"`
	Errors     []FieldError `json:"errors"`
	Success    bool         `json:"success"`
}

func write(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, data interface{}, message string) {
	write(w, status, Envelope{StatusCode: status, Data: data, Message: message, Success: true})
}

// Error writes the failure envelope for err. Unclassified errors become a
// generic 500 and only the log sees their text.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	ae, ok := apperror.As(err)
	if !ok {
		ae = apperror.Wrap(err, apperror.Internal, "Something went wrong")
	}
	status := ae.HTTPStatus()

	if log != nil {
		if status >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("kind", ae.Kind.String()), zap.Error(err))
		} else {
			log.Debug("request rejected", zap.String("kind", ae.Kind.String()), zap.String("message", ae.Message))
		}
	}

	fields := make([]FieldError, 0, len(ae.Fields))
	for field, msg := range ae.Fields {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	write(w, status, ErrorEnvelope{
		StatusCode: status,
		Message:    ae.Message,
		Errors:     fields,
		Success:    false,
	})
}
