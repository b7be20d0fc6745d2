package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Authentication modes
const (
	AuthModeAnonymous = "anonymous"
	AuthModeOAuth     = "oauth"
)

// Authorization actions granted through scope mappings
const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

// DefaultTenantClaim lists the tenant scopes a token may act on
const DefaultTenantClaim = "ccf_tenants"

// DefaultScopes are advertised when oauth.scopesSupported is empty
var DefaultScopes = []string{"ccf:read", "ccf:write", "ccf:admin"}

// DefaultScopeMapping is used when authz.scopeMapping is empty
var DefaultScopeMapping = []ScopeMappingEntry{
	{Scope: "ccf:read", Actions: []string{ActionRead}},
	{Scope: "ccf:write", Actions: []string{ActionRead, ActionWrite}},
	{Scope: "ccf:admin", Actions: []string{ActionRead, ActionWrite, ActionAdmin}},
}

// DefaultPublicPaths bypass authentication
var DefaultPublicPaths = []string{"/health", "/readiness", "/version", "/.well-known"}

// AuthConfig secures the HTTP API
type AuthConfig struct {
	// Mode is anonymous or oauth; anonymous when empty
	Mode string `yaml:"mode,omitempty"`

	OAuth *OAuthConfig `yaml:"oauth,omitempty"`

	// PublicPaths bypass authentication, DefaultPublicPaths when empty
	PublicPaths []string `yaml:"publicPaths,omitempty"`

	// Authz enables authorization of authenticated requests
	Authz *AuthzConfig `yaml:"authz,omitempty"`
}

// OAuthConfig validates bearer tokens against one or more OIDC issuers
type OAuthConfig struct {
	// ResourceURL identifies this server in protected resource metadata
	ResourceURL string `yaml:"resourceUrl"`
	Realm       string `yaml:"realm,omitempty"`

	ScopesSupported []string              `yaml:"scopesSupported,omitempty"`
	Providers       []OAuthProviderConfig `yaml:"providers"`
}

// OAuthProviderConfig is one trusted token issuer
type OAuthProviderConfig struct {
	Name      string `yaml:"name"`
	IssuerURL string `yaml:"issuerUrl"`

	// Audience is the expected aud claim; not checked when empty
	Audience string `yaml:"audience,omitempty"`

	// CACertPath is a PEM bundle trusted when fetching discovery and keys
	CACertPath string `yaml:"caCertPath,omitempty"`
}

// AuthzConfig maps token scopes to actions evaluated by Cedar policies
type AuthzConfig struct {
	// PolicyFile replaces the built-in policies
	PolicyFile   string              `yaml:"policyFile,omitempty"`
	ScopeMapping []ScopeMappingEntry `yaml:"scopeMapping,omitempty"`

	// TenantClaim names the claim listing the tenant scopes a token may act
	// on. "*" in the claim grants every tenant.
	TenantClaim string `yaml:"tenantClaim,omitempty"`
}

// ScopeMappingEntry grants actions to holders of an OAuth scope
type ScopeMappingEntry struct {
	Scope   string   `yaml:"scope"`
	Actions []string `yaml:"actions"`
}

// GetMode returns the authentication mode
func (a *AuthConfig) GetMode() string {
	if a == nil || a.Mode == "" {
		return AuthModeAnonymous
	}
	return a.Mode
}

// GetPublicPaths returns the paths that bypass authentication
func (a *AuthConfig) GetPublicPaths() []string {
	if a == nil || len(a.PublicPaths) == 0 {
		return DefaultPublicPaths
	}
	return a.PublicPaths
}

// GetScopeMapping returns the configured mapping or DefaultScopeMapping
func (a *AuthzConfig) GetScopeMapping() []ScopeMappingEntry {
	if a == nil || len(a.ScopeMapping) == 0 {
		return DefaultScopeMapping
	}
	return a.ScopeMapping
}

// GetTenantClaim returns the tenant claim name
func (a *AuthzConfig) GetTenantClaim() string {
	if a == nil || a.TenantClaim == "" {
		return DefaultTenantClaim
	}
	return a.TenantClaim
}

// LoadPolicies reads the policy file; nil selects the built-in policies
func (a *AuthzConfig) LoadPolicies() ([]byte, error) {
	if a == nil || a.PolicyFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(a.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return data, nil
}

func (a *AuthConfig) validate() error {
	if a == nil {
		return nil
	}

	var errs []error
	switch a.GetMode() {
	case AuthModeAnonymous:
		if a.Authz != nil {
			errs = append(errs, errors.New("authz requires oauth mode"))
		}
	case AuthModeOAuth:
		if a.OAuth == nil {
			errs = append(errs, errors.New("oauth configuration is required for oauth mode"))
		} else {
			errs = append(errs, a.OAuth.validate())
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported auth mode: %s", a.Mode))
	}

	for _, p := range a.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("public path %q must start with '/'", p))
		}
	}
	if a.Authz != nil {
		errs = append(errs, a.Authz.validate())
	}
	return errors.Join(errs...)
}

func (o *OAuthConfig) validate() error {
	var errs []error
	if o.ResourceURL == "" {
		errs = append(errs, errors.New("oauth.resourceUrl is required"))
	}
	if len(o.Providers) == 0 {
		errs = append(errs, errors.New("at least one oauth provider is required"))
	}
	seen := make(map[string]bool, len(o.Providers))
	for i, p := range o.Providers {
		if p.Name == "" || p.IssuerURL == "" {
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: name and issuerUrl are required", i))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: duplicate provider name %q", i, p.Name))
		}
		seen[p.Name] = true
	}
	return errors.Join(errs...)
}

func (a *AuthzConfig) validate() error {
	valid := []string{ActionRead, ActionWrite, ActionAdmin}
	var errs []error
	for i, entry := range a.ScopeMapping {
		if entry.Scope == "" {
			errs = append(errs, fmt.Errorf("authz.scopeMapping[%d]: scope is required", i))
		}
		for _, action := range entry.Actions {
			if !slices.Contains(valid, action) {
				errs = append(errs, fmt.Errorf("authz.scopeMapping[%d]: unknown action %q", i, action))
			}
		}
	}
	return errors.Join(errs...)
}
