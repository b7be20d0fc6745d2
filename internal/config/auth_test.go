package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oauthConfig() *OAuthConfig {
	return &OAuthConfig{
		ResourceURL: "https://connectors.example.com",
		Providers:   []OAuthProviderConfig{{Name: "idp", IssuerURL: "https://idp.example.com"}},
	}
}

func TestAuthConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *AuthConfig
		wantErr []string
	}{
		{name: "nil", cfg: nil},
		{name: "anonymous", cfg: &AuthConfig{}},
		{name: "oauth", cfg: &AuthConfig{Mode: AuthModeOAuth, OAuth: oauthConfig()}},
		{
			name: "oauth with authz",
			cfg: &AuthConfig{Mode: AuthModeOAuth, OAuth: oauthConfig(), Authz: &AuthzConfig{
				ScopeMapping: []ScopeMappingEntry{{Scope: "ops", Actions: []string{ActionAdmin}}},
			}},
		},
		{
			name:    "unknown mode",
			cfg:     &AuthConfig{Mode: "mtls"},
			wantErr: []string{"unsupported auth mode: mtls"},
		},
		{
			name:    "authz requires oauth",
			cfg:     &AuthConfig{Authz: &AuthzConfig{}},
			wantErr: []string{"authz requires oauth mode"},
		},
		{
			name:    "oauth without settings",
			cfg:     &AuthConfig{Mode: AuthModeOAuth},
			wantErr: []string{"oauth configuration is required"},
		},
		{
			name: "oauth missing fields",
			cfg: &AuthConfig{Mode: AuthModeOAuth, OAuth: &OAuthConfig{
				Providers: []OAuthProviderConfig{{Name: "idp"}},
			}},
			wantErr: []string{"oauth.resourceUrl is required", "oauth.providers[0]: name and issuerUrl are required"},
		},
		{
			name:    "no providers",
			cfg:     &AuthConfig{Mode: AuthModeOAuth, OAuth: &OAuthConfig{ResourceURL: "https://x"}},
			wantErr: []string{"at least one oauth provider is required"},
		},
		{
			name: "duplicate providers",
			cfg: &AuthConfig{Mode: AuthModeOAuth, OAuth: &OAuthConfig{
				ResourceURL: "https://x",
				Providers: []OAuthProviderConfig{
					{Name: "idp", IssuerURL: "https://a"},
					{Name: "idp", IssuerURL: "https://b"},
				},
			}},
			wantErr: []string{`duplicate provider name "idp"`},
		},
		{
			name:    "relative public path",
			cfg:     &AuthConfig{Mode: AuthModeOAuth, OAuth: oauthConfig(), PublicPaths: []string{"health"}},
			wantErr: []string{`public path "health" must start with '/'`},
		},
		{
			name: "bad scope mapping",
			cfg: &AuthConfig{Mode: AuthModeOAuth, OAuth: oauthConfig(), Authz: &AuthzConfig{
				ScopeMapping: []ScopeMappingEntry{{Actions: []string{"delete"}}},
			}},
			wantErr: []string{"authz.scopeMapping[0]: scope is required", `unknown action "delete"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestAuthConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg *AuthConfig
	assert.Equal(t, AuthModeAnonymous, cfg.GetMode())
	assert.Equal(t, DefaultPublicPaths, cfg.GetPublicPaths())

	cfg = &AuthConfig{Mode: AuthModeOAuth, PublicPaths: []string{"/status"}}
	assert.Equal(t, AuthModeOAuth, cfg.GetMode())
	assert.Equal(t, []string{"/status"}, cfg.GetPublicPaths())

	var authz *AuthzConfig
	assert.Equal(t, DefaultScopeMapping, authz.GetScopeMapping())
	assert.Equal(t, DefaultTenantClaim, authz.GetTenantClaim())

	authz = &AuthzConfig{TenantClaim: "tenants"}
	assert.Equal(t, "tenants", authz.GetTenantClaim())
}

func TestAuthzConfigLoadPolicies(t *testing.T) {
	t.Parallel()

	var cfg *AuthzConfig
	policies, err := cfg.LoadPolicies()
	require.NoError(t, err)
	assert.Nil(t, policies)

	path := filepath.Join(t.TempDir(), "policies.cedar")
	require.NoError(t, os.WriteFile(path, []byte("permit(principal, action, resource);"), 0o600))

	policies, err = (&AuthzConfig{PolicyFile: path}).LoadPolicies()
	require.NoError(t, err)
	assert.Equal(t, "permit(principal, action, resource);", string(policies))

	_, err = (&AuthzConfig{PolicyFile: path + ".missing"}).LoadPolicies()
	assert.ErrorContains(t, err, "failed to read policy file")
}
