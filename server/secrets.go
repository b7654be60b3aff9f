package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/secret"
)

func (app *App) createSecret(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to create secret"
	start := time.Now()

	var req secret.Request
	err := app.decode(w, r, &req)
	if err == nil {
		err = req.ValidateCreate()
	}
	if err != nil {
		app.observe("secret_create", start, err)
		app.fail(w, r, failure, err)
		return
	}

	arn, err := app.Secrets.Create(r.Context(), req)
	app.observe("secret_create", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"secretArn":  arn,
		"secretName": req.SecretName,
	})
}

func (app *App) getSecret(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "secretName")
	start := time.Now()

	value, err := app.Secrets.Get(r.Context(), name, r.URL.Query().Get("versionStage"))
	app.observe("secret_get", start, err)
	if err != nil {
		app.fail(w, r, "Failed to get secret value", err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"secretName":  name,
		"secretValue": value,
	})
}

func (app *App) updateSecret(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to update secret"
	start := time.Now()

	var req secret.Request
	err := app.decode(w, r, &req)
	if err == nil {
		err = req.ValidateUpdate()
	}
	if err != nil {
		app.observe("secret_update", start, err)
		app.fail(w, r, failure, err)
		return
	}

	version, err := app.Secrets.Update(r.Context(), req)
	app.observe("secret_update", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"secretName": req.SecretName,
		"versionId":  version,
	})
}

// deleteSecret honours ?forceDelete=true for immediate, unrecoverable
// deletion. Absent means false.
func (app *App) deleteSecret(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to delete secret"
	name := pathParam(r, "secretName")
	start := time.Now()

	force := false
	if raw := r.URL.Query().Get("forceDelete"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			err = envelope.Invalid("forceDelete must be true or false")
			app.observe("secret_delete", start, err)
			app.fail(w, r, failure, err)
			return
		}
		force = v
	}

	deletionDate, err := app.Secrets.Delete(r.Context(), name, force)
	app.observe("secret_delete", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	message := "Secret scheduled for deletion"
	if force {
		message = "Secret deleted immediately"
	}
	fields := envelope.Fields{
		"message":     message,
		"secretName":  name,
		"forceDelete": force,
	}
	if deletionDate != nil {
		fields["deletionDate"] = deletionDate.UTC().Format(time.RFC3339)
	}
	app.respond(w, r, fields)
}

func (app *App) secretExists(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "secretName")
	res := app.Secrets.Probe(r.Context(), name)
	app.recordProbe(r, "secret", name, res)

	app.respond(w, r, envelope.Fields{
		"secretName": name,
		"exists":     res.Exists(),
	})
}
