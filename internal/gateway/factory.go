package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"paygrid.io/app/internal/shared/apperr"
	"paygrid.io/app/internal/vault"
)

var ErrNoCredentials = errors.New("no gateway credentials configured")

// StoredCredential is the persisted, still-encrypted credential row for one
// tenant/provider pair. SecretEnc is a vault token wrapping the JSON-encoded
// Credentials bundle.
type StoredCredential struct {
	Provider  string
	SecretEnc string
	TestMode  bool
}

type CredentialStore interface {
	// Credential returns ErrNoCredentials when the tenant has none for the
	// provider.
	Credential(ctx context.Context, tenantID, provider string) (StoredCredential, error)
}

// Factory resolves which adapter to construct for a tenant. Adapters are
// built fresh per call and hold no shared mutable state.
type Factory struct {
	creds CredentialStore
	vault *vault.Vault
	reg   *Registry
}

func NewFactory(creds CredentialStore, v *vault.Vault, reg *Registry) *Factory {
	return &Factory{creds: creds, vault: v, reg: reg}
}

func (f *Factory) CreateFromTenant(ctx context.Context, tenantID, provider string) (Adapter, error) {
	row, err := f.creds.Credential(ctx, tenantID, provider)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, apperr.NotFoundErr(fmt.Sprintf("no %s credentials configured for tenant", provider))
		}
		return nil, err
	}

	plain, err := f.vault.Decrypt(row.SecretEnc)
	if err != nil {
		// Tampering or key rotation mismatch. Fatal for this credential;
		// must reach operators, never be swallowed.
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, apperr.DecryptionErr(fmt.Errorf("credential bundle is not valid JSON: %w", err))
	}

	return f.reg.New(row.Provider, creds, row.TestMode)
}

// CreateFromConfig bypasses persistence; used by onboarding and validation
// flows before credentials are stored.
func (f *Factory) CreateFromConfig(provider string, creds Credentials, testMode bool) (Adapter, error) {
	return f.reg.New(provider, creds, testMode)
}

type ValidationResult struct {
	Valid bool
	Error string
}

// ValidateCredentials confirms credentials work before they are persisted.
// It probes the provider with a read-only status call; an auth failure comes
// back as a gateway error, while a not-found on the probe id proves the
// credentials themselves were accepted.
func (f *Factory) ValidateCredentials(ctx context.Context, provider string, creds Credentials, testMode bool) ValidationResult {
	a, err := f.CreateFromConfig(provider, creds, testMode)
	if err != nil {
		return ValidationResult{Valid: false, Error: apperr.PublicMessage(err)}
	}

	_, err = a.GetStatus(ctx, "credential-probe")
	if err == nil || apperr.IsKind(err, apperr.NotFound) {
		return ValidationResult{Valid: true}
	}
	return ValidationResult{Valid: false, Error: apperr.PublicMessage(err)}
}

// EncodeCredentials serializes and encrypts a credential bundle for storage.
func EncodeCredentials(v *vault.Vault, creds Credentials) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	return v.Encrypt(string(raw))
}
