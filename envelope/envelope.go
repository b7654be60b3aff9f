// Package envelope builds the uniform JSON body returned by every endpoint and
// maps adapter faults onto HTTP status codes. Success and failure responses
// share one shape and differ only in the status field and the presence of the
// message/error pair.
package envelope

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Status is the outcome marker carried by every envelope.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Fields holds the operation-specific members of an envelope, for example
// messageId or eTag. They are flattened into the top-level JSON object.
type Fields map[string]any

// Envelope is the response body for one HTTP exchange.
// Example:
//
//	env := envelope.Success(envelope.Fields{"messageId": id, "queueName": name})
//	envelope.Write(w, http.StatusOK, env)
type Envelope struct {
	Status    Status
	Message   string // human-readable summary, failure only unless set by a field
	Error     string // the fault's own text, failure only
	Fields    Fields
	Timestamp time.Time
}

// now is swapped in tests to pin timestamps.
var now = time.Now

// Success builds a SUCCESS envelope stamped with the current time.
func Success(fields Fields) Envelope {
	return Envelope{
		Status:    StatusSuccess,
		Fields:    fields,
		Timestamp: now(),
	}
}

// Failure builds an ERROR envelope. message names the operation that failed
// and err supplies the underlying description verbatim.
func Failure(message string, err error) Envelope {
	env := Envelope{
		Status:    StatusError,
		Message:   message,
		Timestamp: now(),
	}
	if err != nil {
		env.Error = err.Error()
	}
	return env
}

// MarshalJSON flattens Fields next to the reserved status, message, error and
// timestamp members. Reserved members win over a field of the same name,
// except message which a success envelope may carry as a field.
func (e Envelope) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		body[k] = v
	}
	if e.Status != "" {
		body["status"] = e.Status
	}
	if e.Message != "" {
		body["message"] = e.Message
	}
	if e.Status == StatusError {
		body["error"] = e.Error
	}
	body["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(body)
}

// Write encodes v as the JSON response body with the given status code.
func Write(w http.ResponseWriter, code int, v any) error {
	enc, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return fmt.Errorf("failed to encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(enc); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// WriteFailure writes a failure envelope whose HTTP status is chosen from the
// fault type of err. It returns the status code it wrote.
func WriteFailure(w http.ResponseWriter, message string, err error) (int, error) {
	code := StatusCode(err)
	return code, Write(w, code, Failure(message, err))
}
