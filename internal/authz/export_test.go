package authz

// Test helpers exposed to the external authz_test package, which imports the
// generated mocks (mocks imports authz, so those tests cannot live in package authz).
var (
	WithClaimsForTest   = withClaims
	DefaultScopeForTest = defaultScope
)

const TenantAForTest = tenantA
