package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/pkg/middleware"
)

// ErrNotConfigured is returned when no Keycloak realm is set.
var ErrNotConfigured = errors.New("oidc: keycloak is not configured")

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// NewKeycloakVerifier discovers the realm issuer from cfg.
func NewKeycloakVerifier(ctx context.Context, cfg config.KeycloakConfig) (*Verifier, error) {
	issuer := cfg.Issuer()
	if issuer == "" {
		return nil, ErrNotConfigured
	}
	return NewVerifier(ctx, issuer, cfg.ClientID)
}

// Verify verifies the provided raw ID token using the provided context and returns a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
