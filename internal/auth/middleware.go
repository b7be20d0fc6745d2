// Package auth authenticates API requests with OAuth bearer tokens issued by
// one or more OIDC providers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

var errAllProvidersFailed = errors.New("all providers failed to validate token")

// RFC 6750 section 3 error codes
const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeInvalidToken   = "invalid_token"
)

const defaultRealm = "connector-api"

type namedValidator struct {
	name      string
	validator TokenValidator
}

// multiProviderMiddleware accepts a token valid for any configured provider,
// trying providers in order.
type multiProviderMiddleware struct {
	validators  []namedValidator
	resourceURL string
	realm       string
}

func newMultiProviderMiddleware(
	ctx context.Context,
	providers []config.OAuthProviderConfig,
	resourceURL string,
	realm string,
	factory ValidatorFactory,
) (*multiProviderMiddleware, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider must be configured")
	}
	if realm == "" {
		realm = defaultRealm
	}

	m := &multiProviderMiddleware{
		validators:  make([]namedValidator, 0, len(providers)),
		resourceURL: resourceURL,
		realm:       realm,
	}
	for _, p := range providers {
		v, err := factory(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to create validator for provider %q: %w", p.Name, err)
		}
		m.validators = append(m.validators, namedValidator{name: p.Name, validator: v})
	}
	return m, nil
}

// Middleware rejects requests without a valid token and stores the caller's
// Identity in the request context.
func (m *multiProviderMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			slog.WarnContext(r.Context(), "Token extraction failed",
				"error", err, "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			m.writeError(w, errorCodeInvalidRequest, "missing or malformed authorization header")
			return
		}

		provider, claims, err := m.validate(r.Context(), token)
		if err != nil {
			slog.WarnContext(r.Context(), "Token validation failed",
				"error", err, "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			m.writeError(w, errorCodeInvalidToken, "token validation failed")
			return
		}

		subject, _ := claims.GetSubject()
		slog.DebugContext(r.Context(), "Authentication successful",
			"provider", provider, "subject", subject, "path", r.URL.Path)

		ctx := WithIdentity(r.Context(), &Identity{Subject: subject, Provider: provider, Claims: claims})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *multiProviderMiddleware) validate(ctx context.Context, token string) (string, jwt.MapClaims, error) {
	errs := []error{errAllProvidersFailed}
	for _, nv := range m.validators {
		claims, err := nv.validator.ValidateToken(ctx, token)
		if err != nil {
			slog.DebugContext(ctx, "Provider rejected token", "provider", nv.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", nv.name, err))
			continue
		}
		return nv.name, claims, nil
	}
	return "", nil, errors.Join(errs...)
}

// sanitizeHeaderValue strips CR and LF and escapes quotes for use in a
// quoted-string header parameter
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.ReplaceAll(s, `"`, `\"`)
}

// writeError writes a 401 with an RFC 6750 WWW-Authenticate challenge
func (m *multiProviderMiddleware) writeError(w http.ResponseWriter, errCode, description string) {
	challenge := fmt.Sprintf(`Bearer realm="%s", error="%s", error_description="%s"`,
		sanitizeHeaderValue(m.realm), errCode, sanitizeHeaderValue(description))
	if m.resourceURL != "" {
		challenge += fmt.Sprintf(`, resource_metadata="%s/.well-known/oauth-protected-resource"`,
			sanitizeHeaderValue(strings.TrimRight(m.resourceURL, "/")))
	}

	w.Header().Set("WWW-Authenticate", challenge)
	common.WriteErrorResponse(w, description, common.ErrorTypeUnauthorized, http.StatusUnauthorized)
}
