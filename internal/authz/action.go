package authz

import (
	"net/http"
	"strings"

	"github.com/stacklok/connector-lifecycle-server/internal/api"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

const (
	ActionRead  = config.ActionRead
	ActionWrite = config.ActionWrite
	ActionAdmin = config.ActionAdmin
)

// RouteAction returns the action a request requires. Deleting a connector is
// an admin action, other mutations are writes and reads are GETs. Anything
// outside the connectors API requires admin.
func RouteAction(method, path string) string {
	rest, ok := connectorsSubpath(path)
	if !ok {
		if method == http.MethodGet {
			return ActionRead
		}
		return ActionAdmin
	}

	switch method {
	case http.MethodGet, http.MethodHead:
		return ActionRead
	case http.MethodDelete:
		if rest != "" && !strings.Contains(rest, "/") {
			return ActionAdmin
		}
		return ActionWrite
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	default:
		return ActionAdmin
	}
}

// ConnectorIDFromPath returns the {connectorId} segment of a connectors API
// path, or "" for collection requests.
func ConnectorIDFromPath(path string) string {
	rest, ok := connectorsSubpath(path)
	if !ok || rest == "" {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// connectorsSubpath strips the connectors prefix and surrounding slashes
func connectorsSubpath(path string) (string, bool) {
	if path != api.ConnectorsPath && !strings.HasPrefix(path, api.ConnectorsPath+"/") {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(path, api.ConnectorsPath), "/"), true
}
