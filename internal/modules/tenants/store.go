package tenants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paygrid.io/app/internal/gateway"
	"paygrid.io/app/internal/shared/apperr"
)

var ErrTenantNotFound = errors.New("tenant not found")

type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Get(ctx context.Context, id string) (Tenant, error) {
	var t Tenant
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

// GatewayFor returns the tenant's configured provider name.
func (s *Store) GatewayFor(ctx context.Context, tenantID string) (string, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return "", apperr.NotFoundErr("Tenant not found.")
		}
		return "", err
	}
	if t.Gateway == "" {
		return "", apperr.UnsupportedErr("Tenant has no payment gateway configured.")
	}
	return t.Gateway, nil
}

// Credential implements gateway.CredentialStore.
func (s *Store) Credential(ctx context.Context, tenantID, provider string) (gateway.StoredCredential, error) {
	var row GatewayCredential
	err := s.db.WithContext(ctx).
		First(&row, "tenant_id = ? AND provider = ?", tenantID, provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gateway.StoredCredential{}, gateway.ErrNoCredentials
		}
		return gateway.StoredCredential{}, err
	}
	return gateway.StoredCredential{
		Provider:  row.Provider,
		SecretEnc: row.SecretEnc,
		TestMode:  row.TestMode,
	}, nil
}

// UpsertCredential stores a freshly encrypted bundle, replacing any prior
// one for the tenant/provider pair. Used by onboarding after
// ValidateCredentials passes. Rotation goes through the same path.
func (s *Store) UpsertCredential(ctx context.Context, tenantID, provider, secretEnc string, testMode bool) error {
	now := time.Now()

	var existing GatewayCredential
	err := s.db.WithContext(ctx).
		First(&existing, "tenant_id = ? AND provider = ?", tenantID, provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&GatewayCredential{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			Provider:  provider,
			SecretEnc: secretEnc,
			TestMode:  testMode,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&GatewayCredential{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"secret_enc": secretEnc,
			"test_mode":  testMode,
			"rotated_at": &now,
			"updated_at": now,
		}).Error
}
