package authz

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
	v1 "github.com/stacklok/connector-lifecycle-server/internal/api/v1"
	"github.com/stacklok/connector-lifecycle-server/internal/auth"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// ForbiddenResponse is the body of a 403
type ForbiddenResponse struct {
	Message   string           `json:"message"`
	ErrorType string           `json:"errorType"`
	Details   *ForbiddenDetail `json:"details,omitempty"`
}

// ForbiddenDetail tells the caller what the request required
type ForbiddenDetail struct {
	RequiredAction string   `json:"required_action"`
	Tenant         string   `json:"tenant"`
	UserScopes     []string `json:"user_scopes"`
	Hint           string   `json:"hint"`
}

// Middleware authorizes requests carrying an auth.Identity. Requests without
// one arrived on a public path and pass through. The targeted tenant is the
// scope header, or defaultScope when the header is absent.
func Middleware(authorizer Authorizer, cfg *config.AuthzConfig, defaultScope service.Scope) func(http.Handler) http.Handler {
	scopeMapping := cfg.GetScopeMapping()
	tenantClaim := cfg.GetTenantClaim()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			tenant := defaultScope
			if header := r.Header.Get(v1.ScopeHeader); header != "" {
				parsed, err := service.ParseScope(header)
				if err != nil {
					common.WriteErrorResponse(w, service.Message(err), common.ErrorTypeBadRequest, http.StatusBadRequest)
					return
				}
				tenant = parsed
			}

			scopes := ExtractScopes(identity.Claims)
			req := Request{
				GrantedActions: MapScopesToActions(scopes, scopeMapping),
				Tenants:        ExtractTenants(identity.Claims, tenantClaim),
				Action:         RouteAction(r.Method, r.URL.Path),
				Tenant:         tenant.String(),
				ConnectorID:    ConnectorIDFromPath(r.URL.Path),
			}

			decision, err := authorizer.Authorize(r.Context(), req)
			if err != nil {
				slog.ErrorContext(r.Context(), "Authorization evaluation failed",
					"error", err, "action", req.Action, "path", r.URL.Path, "subject", identity.Subject)
				common.WriteErrorResponse(w, "authorization evaluation failed",
					common.ErrorTypeInternal, http.StatusInternalServerError)
				return
			}

			if !decision.Allowed {
				slog.WarnContext(r.Context(), "Authorization denied",
					"action", req.Action,
					"tenant", req.Tenant,
					"path", r.URL.Path,
					"method", r.Method,
					"subject", identity.Subject,
					"scopes", scopes,
					"granted_actions", req.GrantedActions,
				)
				writeForbidden(w, req, scopes, scopeMapping)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter, req Request, userScopes []string, scopeMapping []config.ScopeMappingEntry) {
	resp := ForbiddenResponse{
		Message:   "You do not have permission to perform this action.",
		ErrorType: common.ErrorTypeForbidden,
		Details: &ForbiddenDetail{
			RequiredAction: req.Action,
			Tenant:         req.Tenant,
			UserScopes:     userScopes,
			Hint:           buildHint(req, scopeMapping),
		},
	}
	common.WriteJSONResponse(w, resp, http.StatusForbidden)
}

// buildHint names the scopes granting the required action, or the tenant
// when the token already holds the action.
func buildHint(req Request, scopeMapping []config.ScopeMappingEntry) string {
	if slices.Contains(req.GrantedActions, req.Action) {
		return "The token does not grant access to tenant " + req.Tenant + "."
	}

	var matching []string
	for _, entry := range scopeMapping {
		if slices.Contains(entry.Actions, req.Action) {
			matching = append(matching, entry.Scope)
		}
	}
	if len(matching) == 0 {
		return "No configured scopes grant the required action."
	}
	return "This operation requires one of the following scopes: " + strings.Join(matching, ", ")
}
