// Package secret manages Secrets Manager secrets on behalf of HTTP callers.
package secret

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/gurre/awsgate/aws"
	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/probe"
	"github.com/sirupsen/logrus"
)

// Request is the inbound body of the create and update endpoints.
type Request struct {
	SecretName   string `json:"secretName"`
	SecretValue  string `json:"secretValue,omitempty"`
	Description  string `json:"description,omitempty"`
	VersionStage string `json:"versionStage,omitempty"`
}

// ValidateCreate checks the fields CreateSecret needs.
func (r *Request) ValidateCreate() error {
	var v envelope.Validator
	v.Required("secretName", r.SecretName)
	v.Required("secretValue", r.SecretValue)
	return v.Err()
}

// ValidateUpdate checks the fields UpdateSecret needs.
func (r *Request) ValidateUpdate() error {
	return r.ValidateCreate()
}

// Adapter talks to Secrets Manager through a SecretsManagerClient.
type Adapter struct {
	client aws.SecretsManagerClient
	logger logrus.FieldLogger
}

// New creates a secret Adapter.
func New(client aws.SecretsManagerClient, logger logrus.FieldLogger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Create stores a new secret and returns its ARN.
func (a *Adapter) Create(ctx context.Context, req Request) (string, error) {
	if err := req.ValidateCreate(); err != nil {
		return "", err
	}

	out, err := a.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         sdkaws.String(req.SecretName),
		SecretString: sdkaws.String(req.SecretValue),
		Description:  optional(req.Description),
	})
	if err != nil {
		return "", envelope.Dependency("CreateSecret", err)
	}

	arn := sdkaws.ToString(out.ARN)
	a.logger.WithFields(logrus.Fields{"secret": req.SecretName, "arn": arn}).Info("secret created")
	return arn, nil
}

// Get returns the secret value for the given stage, AWSCURRENT when
// versionStage is blank. Binary secrets are returned base64 encoded.
func (a *Adapter) Get(ctx context.Context, name, versionStage string) (string, error) {
	var v envelope.Validator
	v.Required("secretName", name)
	if err := v.Err(); err != nil {
		return "", err
	}

	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     sdkaws.String(name),
		VersionStage: optional(versionStage),
	})
	if err != nil {
		return "", envelope.Dependency("GetSecretValue", err)
	}

	a.logger.WithField("secret", name).Info("secret value retrieved")
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return base64.StdEncoding.EncodeToString(out.SecretBinary), nil
}

// Update replaces the secret's value and returns the new version id.
func (a *Adapter) Update(ctx context.Context, req Request) (string, error) {
	if err := req.ValidateUpdate(); err != nil {
		return "", err
	}

	out, err := a.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     sdkaws.String(req.SecretName),
		SecretString: sdkaws.String(req.SecretValue),
		Description:  optional(req.Description),
	})
	if err != nil {
		return "", envelope.Dependency("UpdateSecret", err)
	}

	version := sdkaws.ToString(out.VersionId)
	a.logger.WithFields(logrus.Fields{"secret": req.SecretName, "versionId": version}).Info("secret updated")
	return version, nil
}

// Delete removes the secret. With force the secret is deleted without a
// recovery window; otherwise the provider schedules the deletion. The
// returned time is the provider's deletion date, nil when it reports none.
func (a *Adapter) Delete(ctx context.Context, name string, force bool) (*time.Time, error) {
	var v envelope.Validator
	v.Required("secretName", name)
	if err := v.Err(); err != nil {
		return nil, err
	}

	input := &secretsmanager.DeleteSecretInput{SecretId: sdkaws.String(name)}
	if force {
		input.ForceDeleteWithoutRecovery = sdkaws.Bool(true)
	}

	out, err := a.client.DeleteSecret(ctx, input)
	if err != nil {
		return nil, envelope.Dependency("DeleteSecret", err)
	}

	a.logger.WithFields(logrus.Fields{
		"secret":       name,
		"forceDelete":  force,
		"deletionDate": out.DeletionDate,
	}).Info("secret deletion requested")
	return out.DeletionDate, nil
}

// Probe checks the secret with DescribeSecret. A secret scheduled for
// deletion still exists.
func (a *Adapter) Probe(ctx context.Context, name string) probe.Result {
	_, err := a.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: sdkaws.String(name)})
	if err == nil {
		return probe.OK()
	}
	if isNotFound(err) {
		return probe.Missing()
	}
	return probe.Error(err)
}

// Exists reports whether the secret was positively found.
func (a *Adapter) Exists(ctx context.Context, name string) bool {
	return a.Probe(ctx, name).Exists()
}

func isNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sdkaws.String(s)
}
