// Package kubernetes runs connector containers as Kubernetes Jobs. Definitions
// are stored as PodTemplates and each submission becomes a batch/v1 Job. A
// controller watches the Jobs it created and reports their completion,
// including Jobs deleted by a cancellation.
package kubernetes
