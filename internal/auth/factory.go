package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

// NewAuthMiddleware creates the authentication middleware described by cfg
// and the handler of the protected resource metadata. A nil config, or
// anonymous mode, yields a pass-through middleware and a nil handler.
func NewAuthMiddleware(
	ctx context.Context,
	cfg *config.AuthConfig,
	factory ValidatorFactory,
) (func(http.Handler) http.Handler, http.Handler, error) {
	switch cfg.GetMode() {
	case config.AuthModeAnonymous:
		slog.Info("auth: anonymous mode")
		return anonymousMiddleware, nil, nil
	case config.AuthModeOAuth:
		return createOAuthMiddleware(ctx, cfg, factory)
	default:
		return nil, nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

func createOAuthMiddleware(
	ctx context.Context,
	cfg *config.AuthConfig,
	factory ValidatorFactory,
) (func(http.Handler) http.Handler, http.Handler, error) {
	if cfg.OAuth == nil {
		return nil, nil, errors.New("oauth configuration is required for oauth mode")
	}
	if factory == nil {
		factory = DefaultValidatorFactory
	}
	oauth := cfg.OAuth

	m, err := newMultiProviderMiddleware(ctx, oauth.Providers, oauth.ResourceURL, oauth.Realm, factory)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create multi-provider middleware: %w", err)
	}

	issuers := make([]string, len(oauth.Providers))
	for i, p := range oauth.Providers {
		issuers[i] = p.IssuerURL
	}
	handler, err := newProtectedResourceHandler(oauth.ResourceURL, issuers, oauth.ScopesSupported)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create protected resource handler: %w", err)
	}

	slog.Info("auth: OAuth mode", "providers", len(oauth.Providers))
	return WrapWithPublicPaths(m.Middleware, cfg.GetPublicPaths()), handler, nil
}

func anonymousMiddleware(next http.Handler) http.Handler {
	return next
}
