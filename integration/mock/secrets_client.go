package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/google/uuid"
)

const (
	stageCurrent  = "AWSCURRENT"
	stagePrevious = "AWSPREVIOUS"

	defaultRecoveryWindowDays = 30
)

// SecretARNPrefix is prepended to secret names to form their ARNs.
const SecretARNPrefix = "arn:aws:secretsmanager:us-east-1:000000000000:secret:"

type secretVersion struct {
	id     string
	str    *string
	binary []byte
}

type secretEntry struct {
	name        string
	arn         string
	description string
	current     *secretVersion
	previous    *secretVersion
	deletedAt   *time.Time // when deletion was requested, not when it takes effect
}

// SecretsManagerClient is a mock implementation of aws.SecretsManagerClient
// interface for testing. It tracks the AWSCURRENT and AWSPREVIOUS stages and
// scheduled deletion.
type SecretsManagerClient struct {
	mu      sync.Mutex
	secrets map[string]*secretEntry

	// Now supplies the clock used for deletion dates.
	Now func() time.Time
	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewSecretsManagerClient creates a new, empty mock Secrets Manager client.
func NewSecretsManagerClient() *SecretsManagerClient {
	return &SecretsManagerClient{
		secrets: make(map[string]*secretEntry),
		Now:     time.Now,
	}
}

// lookup finds a secret by name or ARN. Caller holds mu.
func (m *SecretsManagerClient) lookup(id string) (*secretEntry, error) {
	if s, ok := m.secrets[id]; ok {
		return s, nil
	}
	for _, s := range m.secrets {
		if s.arn == id {
			return s, nil
		}
	}
	return nil, &types.ResourceNotFoundException{
		Message: aws.String("Secrets Manager can't find the specified secret."),
	}
}

// live is lookup that also rejects secrets scheduled for deletion.
func (m *SecretsManagerClient) live(id string) (*secretEntry, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.deletedAt != nil {
		return nil, &types.InvalidRequestException{
			Message: aws.String("You can't perform this operation on the secret because it was marked for deletion."),
		}
	}
	return s, nil
}

func (m *SecretsManagerClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	name := aws.ToString(params.Name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.secrets[name]; ok {
		if s.deletedAt != nil {
			return nil, &types.InvalidRequestException{
				Message: aws.String("You can't create this secret because a secret with this name is already scheduled for deletion."),
			}
		}
		return nil, &types.ResourceExistsException{
			Message: aws.String(fmt.Sprintf("The operation failed because the secret %s already exists.", name)),
		}
	}

	v := &secretVersion{id: uuid.NewString(), str: copyString(params.SecretString), binary: params.SecretBinary}
	s := &secretEntry{
		name:        name,
		arn:         SecretARNPrefix + name + "-" + uuid.NewString()[:6],
		description: aws.ToString(params.Description),
		current:     v,
	}
	m.secrets[name] = s

	return &secretsmanager.CreateSecretOutput{
		ARN:       aws.String(s.arn),
		Name:      aws.String(name),
		VersionId: aws.String(v.id),
	}, nil
}

func (m *SecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(aws.ToString(params.SecretId))
	if err != nil {
		return nil, err
	}

	stage := stageCurrent
	if params.VersionStage != nil {
		stage = *params.VersionStage
	}
	var v *secretVersion
	switch stage {
	case stageCurrent:
		v = s.current
	case stagePrevious:
		v = s.previous
	}
	if v == nil {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret value for staging label: %s", stage)),
		}
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:           aws.String(s.arn),
		Name:          aws.String(s.name),
		VersionId:     aws.String(v.id),
		SecretString:  copyString(v.str),
		SecretBinary:  v.binary,
		VersionStages: []string{stage},
	}, nil
}

// UpdateSecret stores a new AWSCURRENT version when a value is supplied and
// moves the old one to AWSPREVIOUS.
func (m *SecretsManagerClient) UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(aws.ToString(params.SecretId))
	if err != nil {
		return nil, err
	}
	if params.Description != nil {
		s.description = *params.Description
	}

	out := &secretsmanager.UpdateSecretOutput{ARN: aws.String(s.arn), Name: aws.String(s.name)}
	if params.SecretString != nil || params.SecretBinary != nil {
		s.previous = s.current
		s.current = &secretVersion{id: uuid.NewString(), str: copyString(params.SecretString), binary: params.SecretBinary}
		out.VersionId = aws.String(s.current.id)
	}
	return out, nil
}

// DeleteSecret removes the secret at once when ForceDeleteWithoutRecovery is
// set and otherwise schedules it after the recovery window.
func (m *SecretsManagerClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(aws.ToString(params.SecretId))
	if err != nil {
		return nil, err
	}

	now := m.Now().UTC()
	out := &secretsmanager.DeleteSecretOutput{ARN: aws.String(s.arn), Name: aws.String(s.name)}

	if aws.ToBool(params.ForceDeleteWithoutRecovery) {
		delete(m.secrets, s.name)
		out.DeletionDate = aws.Time(now)
		return out, nil
	}

	days := int64(defaultRecoveryWindowDays)
	if params.RecoveryWindowInDays != nil {
		days = *params.RecoveryWindowInDays
	}
	at := now.Add(time.Duration(days) * 24 * time.Hour)
	s.deletedAt = &now
	out.DeletionDate = aws.Time(at)
	return out, nil
}

func (m *SecretsManagerClient) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(aws.ToString(params.SecretId))
	if err != nil {
		return nil, err
	}
	out := &secretsmanager.DescribeSecretOutput{
		ARN:         aws.String(s.arn),
		Name:        aws.String(s.name),
		Description: aws.String(s.description),
	}
	if s.deletedAt != nil {
		out.DeletedDate = aws.Time(*s.deletedAt)
	}
	return out, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
