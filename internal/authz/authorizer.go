// Package authz authorizes authenticated API requests with Cedar policies
// over the caller's granted actions and tenant scopes.
package authz

import "context"

//go:generate mockgen -destination=mocks/mock_authorizer.go -package=mocks -source=authorizer.go Authorizer

// Authorizer decides whether a principal may perform an action
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (Decision, error)
}

// Request is one authorization question.
type Request struct {
	// GrantedActions come from the token's scopes through the scope mapping.
	GrantedActions []string

	// Tenants are the ARN prefixes the token may act on. "*" grants all.
	Tenants []string

	// Action is read, write or admin.
	Action string

	// Tenant is the ARN prefix the request targets.
	Tenant string

	// ConnectorID is empty for collection level requests.
	ConnectorID string
}

// Decision is the outcome of a Request
type Decision struct {
	Allowed bool

	// Reasons lists the ids of the policies that determined the decision.
	Reasons []string
}
