package authz

import (
	"strings"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

// ExtractScopes returns the OAuth scopes of claims, read from the RFC 6749
// "scope" string or else the "scp" array.
func ExtractScopes(claims map[string]any) []string {
	if scopeStr, ok := claims["scope"].(string); ok && scopeStr != "" {
		return strings.Fields(scopeStr)
	}
	return stringList(claims["scp"])
}

// ExtractTenants returns the tenant scopes listed under claim. The claim may
// be an array or a space separated string. A missing claim grants no tenant.
func ExtractTenants(claims map[string]any, claim string) []string {
	if s, ok := claims[claim].(string); ok {
		return strings.Fields(s)
	}
	return stringList(claims[claim])
}

func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, s := range arr {
		if str, ok := s.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// MapScopesToActions returns the actions granted to scopes by mapping
func MapScopesToActions(scopes []string, mapping []config.ScopeMappingEntry) []string {
	actionSet := make(map[string]bool)
	for _, scope := range scopes {
		for _, entry := range mapping {
			if entry.Scope != scope {
				continue
			}
			for _, action := range entry.Actions {
				actionSet[action] = true
			}
		}
	}

	actions := make([]string, 0, len(actionSet))
	for action := range actionSet {
		actions = append(actions, action)
	}
	return actions
}
