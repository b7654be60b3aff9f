package server

import (
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gurre/awsgate/envelope"
)

// ApplicationName is reported by the health and info endpoints.
const ApplicationName = "awsgate"

var supportedServices = []string{
	"SQS - Simple Queue Service",
	"SNS - Simple Notification Service",
	"S3 - Simple Storage Service",
	"Secrets Manager",
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (app *App) writeJSON(w http.ResponseWriter, r *http.Request, body map[string]any) {
	if err := envelope.Write(w, http.StatusOK, body); err != nil {
		app.log(r).WithError(err).Error("failed to write response")
	}
}

func (app *App) health(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, map[string]any{
		"status":      "UP",
		"application": ApplicationName,
		"version":     app.Version,
		"timestamp":   timestamp(),
	})
}

func (app *App) info(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, map[string]any{
		"application":       ApplicationName,
		"description":       "REST gateway for SQS, SNS, S3 and Secrets Manager",
		"version":           app.Version,
		"go":                runtime.Version(),
		"supportedServices": supportedServices,
	})
}

// serviceHealth reports liveness of the gateway for one service. It does not
// call the provider.
func (app *App) serviceHealth(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.writeJSON(w, r, map[string]any{
			"service":   service,
			"status":    "UP",
			"timestamp": timestamp(),
		})
	}
}

// echo returns the JSON object it received, or "No data received" when the
// body is empty or null. Arrays and scalars are rejected.
func (app *App) echo(w http.ResponseWriter, r *http.Request) {
	var received any = "No data received"

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, app.maxBody()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			app.fail(w, r, "Test endpoint failed", envelope.Invalid("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		app.fail(w, r, "Test endpoint failed", err)
		return
	}
	if len(body) > 0 {
		var data map[string]any
		if err := json.Unmarshal(body, &data); err != nil {
			app.fail(w, r, "Test endpoint failed", envelope.Invalid("body must be a JSON object: %v", err))
			return
		}
		if data != nil {
			received = data
		}
	}

	app.respond(w, r, envelope.Fields{
		"message":      "Test endpoint working correctly",
		"receivedData": received,
	})
}
