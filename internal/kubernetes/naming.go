package kubernetes

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	// LabelManaged marks the objects owned by the connector framework
	LabelManaged = "ccf.stacklok.dev/managed"
	// LabelJobID carries the job id on PodTemplates and Jobs
	LabelJobID = "ccf.stacklok.dev/job-id"

	// AnnotationCancelReason records why a Job was cancelled
	AnnotationCancelReason = "ccf.stacklok.dev/cancel-reason"
	// AnnotationReported marks a Job whose completion was delivered
	AnnotationReported = "ccf.stacklok.dev/reported"
	// AnnotationExecutionRole records the execution role of a definition
	AnnotationExecutionRole = "ccf.stacklok.dev/execution-role-arn"
	// AnnotationJobRole records the job role of a definition
	AnnotationJobRole = "ccf.stacklok.dev/job-role-arn"

	// FinalizerCompletion keeps a deleted Job around until its completion
	// has been reported
	FinalizerCompletion = "ccf.stacklok.dev/completion"

	tagAnnotationPrefix = "tags.ccf.stacklok.dev/"
	containerName       = "connector"
)

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// ObjectName converts name into a valid DNS-1123 label.
//
// Upper case letters are lowered and runs of other characters become a single
// '-'. Leading and trailing dashes are removed and the result is cut to 63
// characters.
func ObjectName(name string) (string, error) {
	n := invalidNameChars.ReplaceAllString(strings.ToLower(name), "-")
	if len(n) > validation.DNS1123LabelMaxLength {
		n = n[:validation.DNS1123LabelMaxLength]
	}
	n = strings.Trim(n, "-")
	if n == "" {
		return "", fmt.Errorf("cannot derive an object name from %q", name)
	}
	if errs := validation.IsDNS1123Label(n); len(errs) > 0 {
		return "", fmt.Errorf("invalid object name %q: %s", n, strings.Join(errs, ", "))
	}
	return n, nil
}

// Handle identifies a submitted Job as "namespace/name"
func Handle(namespace, name string) string {
	return namespace + "/" + name
}

// ParseHandle splits a handle into namespace and name
func ParseHandle(handle string) (string, string, error) {
	namespace, name, ok := strings.Cut(handle, "/")
	if !ok || namespace == "" || name == "" {
		return "", "", fmt.Errorf("invalid job handle %q", handle)
	}
	return namespace, name, nil
}
