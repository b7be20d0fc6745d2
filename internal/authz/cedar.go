package authz

import (
	"context"
	"fmt"
	"log/slog"

	cedar "github.com/cedar-policy/cedar-go"
)

const cedarNamespace = "CCF"

// collectionResource names the resource of requests without a connector id
const collectionResource = "custom-connectors"

type cedarAuthorizer struct {
	policySet *cedar.PolicySet
}

// NewCedarAuthorizer parses policyBytes, or the built-in policies when nil.
func NewCedarAuthorizer(policyBytes []byte) (*cedarAuthorizer, error) {
	if policyBytes == nil {
		policyBytes = []byte(defaultPolicies)
	}

	ps, err := cedar.NewPolicySetFromBytes("policies.cedar", policyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Cedar policies: %w", err)
	}
	return &cedarAuthorizer{policySet: ps}, nil
}

// Authorize evaluates req against the policy set. The principal carries the
// grantedActions and tenants sets, and the resource carries its tenant.
func (a *cedarAuthorizer) Authorize(ctx context.Context, req Request) (Decision, error) {
	principalUID := cedar.NewEntityUID(cedar.EntityType(cedarNamespace+"::User"), cedar.String("authenticated"))

	resourceID := req.ConnectorID
	if resourceID == "" {
		resourceID = collectionResource
	}
	resourceUID := cedar.NewEntityUID(cedar.EntityType(cedarNamespace+"::Connector"), cedar.String(resourceID))

	entities := cedar.EntityMap{
		principalUID: cedar.Entity{
			UID: principalUID,
			Attributes: cedar.NewRecord(cedar.RecordMap{
				"grantedActions": stringSet(req.GrantedActions),
				"tenants":        stringSet(req.Tenants),
			}),
		},
		resourceUID: cedar.Entity{
			UID: resourceUID,
			Attributes: cedar.NewRecord(cedar.RecordMap{
				"tenant": cedar.String(req.Tenant),
			}),
		},
	}

	cedarReq := cedar.Request{
		Principal: principalUID,
		Action:    cedar.NewEntityUID(cedar.EntityType(cedarNamespace+"::Action"), cedar.String(req.Action)),
		Resource:  resourceUID,
		Context:   cedar.NewRecord(cedar.RecordMap{}),
	}

	decision, diagnostic := cedar.Authorize(a.policySet, entities, cedarReq)

	slog.DebugContext(ctx, "Authorization decision",
		"action", req.Action,
		"decision", decision,
		"tenant", req.Tenant,
		"connector_id", req.ConnectorID,
	)

	var reasons []string
	for _, r := range diagnostic.Reasons {
		reasons = append(reasons, string(r.PolicyID))
	}
	for _, e := range diagnostic.Errors {
		slog.DebugContext(ctx, "Policy evaluation error", "policy", e.PolicyID, "error", e.Message)
	}

	return Decision{
		Allowed: decision == cedar.Allow,
		Reasons: reasons,
	}, nil
}

func stringSet(values []string) cedar.Set {
	out := make([]cedar.Value, len(values))
	for i, v := range values {
		out[i] = cedar.String(v)
	}
	return cedar.NewSet(out...)
}
