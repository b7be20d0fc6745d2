package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// ConnectorIDPrefix prefixes every generated connector id
	ConnectorIDPrefix = "cc-"
	// JobIDPrefix prefixes every generated job id
	JobIDPrefix = "ccj-"

	idSuffixLength = 12
)

// NewConnectorID returns a new connector id such as "cc-0123456789ab".
func NewConnectorID() string {
	return ConnectorIDPrefix + randomSuffix()
}

// NewJobID returns a new job id such as "ccj-0123456789ab".
func NewJobID() string {
	return JobIDPrefix + randomSuffix()
}

func randomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:idSuffixLength]
}

// Scope identifies the tenant owning a set of resources. Its string form is
// the ARN prefix shared by all of the tenant's connectors.
type Scope struct {
	Region  string
	Account string
}

// String returns the ARN prefix of the scope.
func (s Scope) String() string {
	return fmt.Sprintf("arn:aws:ccf:%s:%s", s.Region, s.Account)
}

// ConnectorARN returns the globally unique resource name of a connector.
func (s Scope) ConnectorARN(connectorID string) string {
	return s.String() + ":custom-connector/" + connectorID
}

// ParseScope parses an ARN prefix produced by Scope.String.
func ParseScope(prefix string) (Scope, error) {
	parts := strings.Split(prefix, ":")
	if len(parts) != 5 || parts[0] != "arn" || parts[1] != "aws" || parts[2] != "ccf" ||
		parts[3] == "" || parts[4] == "" {
		return Scope{}, BadRequestf("invalid scope: %s", prefix)
	}
	return Scope{Region: parts[3], Account: parts[4]}, nil
}
