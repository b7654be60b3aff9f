package envelope

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func pinClock(t *testing.T, ts time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	pinClock(t, ts)

	data, err := json.Marshal(Success(Fields{"messageId": "msg-1", "queueName": "orders"}))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := decode(t, data)

	if body["status"] != "SUCCESS" {
		t.Errorf("status: got %v, want SUCCESS", body["status"])
	}
	if body["messageId"] != "msg-1" || body["queueName"] != "orders" {
		t.Errorf("operation fields not flattened: %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Error("success envelope must not carry an error member")
	}
	if body["timestamp"] != "2024-03-01T12:30:00Z" {
		t.Errorf("timestamp: got %v", body["timestamp"])
	}
}

func TestFailureEnvelope(t *testing.T) {
	pinClock(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(Failure("Failed to send message to SQS queue", errors.New("queue is gone")))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := decode(t, data)

	if body["status"] != "ERROR" {
		t.Errorf("status: got %v, want ERROR", body["status"])
	}
	if body["message"] != "Failed to send message to SQS queue" {
		t.Errorf("message: got %v", body["message"])
	}
	if body["error"] != "queue is gone" {
		t.Errorf("error: got %v", body["error"])
	}
}

func TestTimestampTakenAtConstruction(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pinClock(t, first)
	env := Success(nil)

	now = func() time.Time { return first.Add(time.Hour) }
	if !env.Timestamp.Equal(first) {
		t.Errorf("timestamp changed after construction: %v", env.Timestamp)
	}
}

func TestReservedMembersWin(t *testing.T) {
	data, err := json.Marshal(Success(Fields{"status": "UP", "message": "Object deleted successfully"}))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := decode(t, data)
	if body["status"] != "SUCCESS" {
		t.Errorf("status field overrode envelope status: %v", body["status"])
	}
	if body["message"] != "Object deleted successfully" {
		t.Errorf("success message field dropped: %v", body["message"])
	}
}

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Invalid("queueName is required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("decode: %w", Invalid("bad json")), http.StatusBadRequest},
		{"auth", &AuthError{Reason: "missing credentials"}, http.StatusUnauthorized},
		{"denied", &AccessDeniedError{Principal: "user", Required: "ADMIN"}, http.StatusForbidden},
		{"not found", &NotFoundError{Method: "GET", Path: "/nope"}, http.StatusNotFound},
		{"method", &MethodNotAllowedError{Method: "PATCH", Path: "/api/test"}, http.StatusMethodNotAllowed},
		{"dependency", Dependency("SendMessage", errors.New("throttled")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusCode(tc.err); got != tc.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestDependencyErrorKeepsProviderText(t *testing.T) {
	cause := errors.New("AccessDenied: not authorized to perform sqs:SendMessage")
	err := Dependency("SendMessage", cause)
	if err.Error() != cause.Error() {
		t.Errorf("got %q, want provider text %q", err.Error(), cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("dependency error should unwrap to the provider error")
	}
	if Dependency("SendMessage", nil) != nil {
		t.Error("wrapping a nil error should return nil")
	}
}

func TestValidator(t *testing.T) {
	var v Validator
	v.Required("queueName", "  ")
	v.Required("messageBody", "hello")
	v.Range("delaySeconds", 901, 0, 900)

	err := v.Err()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("expected 2 problems, got %v", verr.Problems)
	}

	var ok Validator
	ok.Required("queueName", "orders")
	if ok.Err() != nil {
		t.Errorf("expected no error, got %v", ok.Err())
	}
}

func TestWriteFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	code, err := WriteFailure(rec, "Failed to create secret", Invalid("secretValue is required"))
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if code != http.StatusBadRequest || rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d/%d", code, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
	body := decode(t, rec.Body.Bytes())
	if body["error"] != "secretValue is required" {
		t.Errorf("error: got %v", body["error"])
	}
}
