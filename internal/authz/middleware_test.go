package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/stacklok/connector-lifecycle-server/internal/api/v1"
	"github.com/stacklok/connector-lifecycle-server/internal/auth"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

var defaultScope = service.Scope{Region: "us-east-1", Account: "111111111111"}

func withClaims(r *http.Request, claims jwt.MapClaims) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{Subject: "alice", Claims: claims}))
}

func TestMiddleware_Cedar(t *testing.T) {
	t.Parallel()

	authorizer, err := NewCedarAuthorizer(nil)
	require.NoError(t, err)
	handler := Middleware(authorizer, nil, defaultScope)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	tests := []struct {
		name       string
		method     string
		path       string
		scopeHdr   string
		claims     jwt.MapClaims
		anonymous  bool
		wantStatus int
	}{
		{
			name:       "anonymous passes through",
			method:     http.MethodDelete,
			path:       "/api/v1/custom-connectors/ccc-1",
			anonymous:  true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "reader lists default tenant",
			method:     http.MethodGet,
			path:       "/api/v1/custom-connectors/",
			claims:     jwt.MapClaims{"scope": "ccf:read", "ccf_tenants": []any{tenantA}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "reader cannot write",
			method:     http.MethodPost,
			path:       "/api/v1/custom-connectors/ccc-1/jobs",
			claims:     jwt.MapClaims{"scope": "ccf:read", "ccf_tenants": []any{tenantA}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "writer starts job",
			method:     http.MethodPost,
			path:       "/api/v1/custom-connectors/ccc-1/jobs",
			claims:     jwt.MapClaims{"scope": "ccf:write", "ccf_tenants": []any{tenantA}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "writer cannot delete connector",
			method:     http.MethodDelete,
			path:       "/api/v1/custom-connectors/ccc-1",
			claims:     jwt.MapClaims{"scope": "ccf:write", "ccf_tenants": []any{tenantA}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "header selects other tenant",
			method:     http.MethodGet,
			path:       "/api/v1/custom-connectors/ccc-1",
			scopeHdr:   tenantB,
			claims:     jwt.MapClaims{"scope": "ccf:admin", "ccf_tenants": []any{tenantA}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wildcard tenant",
			method:     http.MethodDelete,
			path:       "/api/v1/custom-connectors/ccc-1",
			scopeHdr:   tenantB,
			claims:     jwt.MapClaims{"scope": "ccf:admin", "ccf_tenants": "*"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing tenants claim",
			method:     http.MethodGet,
			path:       "/api/v1/custom-connectors/",
			claims:     jwt.MapClaims{"scope": "ccf:admin"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "malformed scope header",
			method:     http.MethodGet,
			path:       "/api/v1/custom-connectors/",
			scopeHdr:   "us-east-1",
			claims:     jwt.MapClaims{"scope": "ccf:admin", "ccf_tenants": "*"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.scopeHdr != "" {
				req.Header.Set(v1.ScopeHeader, tt.scopeHdr)
			}
			if !tt.anonymous {
				req = withClaims(req, tt.claims)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestBuildHint(t *testing.T) {
	t.Parallel()

	hint := buildHint(Request{GrantedActions: []string{ActionRead}, Action: ActionRead, Tenant: tenantB}, nil)
	assert.Equal(t, "The token does not grant access to tenant "+tenantB+".", hint)

	hint = buildHint(Request{Action: "delete"}, config.DefaultScopeMapping)
	assert.Equal(t, "No configured scopes grant the required action.", hint)
}
