package auth

//go:generate mockgen -destination=mocks/mock_validator.go -package=mocks -source=validator.go TokenValidator

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

const discoveryTimeout = 10 * time.Second

// TokenValidator validates a raw bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (jwt.MapClaims, error)
}

// ValidatorFactory creates the validator of one provider
type ValidatorFactory func(ctx context.Context, cfg config.OAuthProviderConfig) (TokenValidator, error)

// DefaultValidatorFactory validates tokens against the provider's OIDC
// discovery document and key set.
var DefaultValidatorFactory ValidatorFactory = NewOIDCValidator

type oidcValidator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCValidator discovers the issuer's keys. ctx must outlive the
// validator since key refreshes use it.
func NewOIDCValidator(ctx context.Context, cfg config.OAuthProviderConfig) (TokenValidator, error) {
	client := &http.Client{Timeout: discoveryTimeout}
	if cfg.CACertPath != "" {
		pool, err := loadCertPool(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}
	}
	ctx = oidc.ClientContext(ctx, client)

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover issuer %s: %w", cfg.IssuerURL, err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.Audience,
		SkipClientIDCheck: cfg.Audience == "",
	})
	return &oidcValidator{verifier: verifier}, nil
}

func (v *oidcValidator) ValidateToken(ctx context.Context, token string) (jwt.MapClaims, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	var claims jwt.MapClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}
	return claims, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// extractBearerToken returns the token of an "Authorization: Bearer" header
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("authorization header is missing")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header is not a bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("bearer token is empty")
	}
	return token, nil
}
