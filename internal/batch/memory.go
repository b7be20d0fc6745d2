package batch

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// Run is a submission recorded by MemoryCompute
type Run struct {
	Handle       string
	Submission   Submission
	Definition   Definition
	Cancelled    bool
	CancelReason string
	Outcome      Outcome
}

// MemoryCompute is an in-process Compute. Runs never finish on their own;
// Complete ends them and notifies the completion handler.
type MemoryCompute struct {
	mu          sync.Mutex
	definitions map[string]Definition
	runs        map[string]*Run
	order       []string
	handler     CompletionHandler
}

var _ Compute = (*MemoryCompute)(nil)

// NewMemoryCompute creates an empty in-process compute service
func NewMemoryCompute() *MemoryCompute {
	return &MemoryCompute{
		definitions: make(map[string]Definition),
		runs:        make(map[string]*Run),
	}
}

// SetCompletionHandler sets the receiver of completions
func (m *MemoryCompute) SetCompletionHandler(h CompletionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

func (m *MemoryCompute) Register(_ context.Context, def Definition) (string, error) {
	if def.Name == "" {
		return "", fmt.Errorf("definition name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	def.Tags = maps.Clone(def.Tags)
	def.Environment = append([]EnvVar(nil), def.Environment...)
	m.definitions[def.Name] = def
	return def.Name, nil
}

func (m *MemoryCompute) Submit(_ context.Context, sub Submission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, ok := m.definitions[sub.Definition]
	if !ok {
		return "", fmt.Errorf("definition %s is not registered", sub.Definition)
	}
	handle := fmt.Sprintf("memory/%s-%d", sub.Name, len(m.order)+1)
	sub.Tags = maps.Clone(sub.Tags)
	m.runs[handle] = &Run{Handle: handle, Submission: sub, Definition: def}
	m.order = append(m.order, handle)
	return handle, nil
}

func (m *MemoryCompute) Cancel(ctx context.Context, handle, reason string) error {
	m.mu.Lock()
	run, ok := m.runs[handle]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, handle)
	}
	run.Cancelled = true
	run.CancelReason = reason
	m.mu.Unlock()

	return m.Complete(ctx, handle, OutcomeFailed)
}

// Complete ends a run with outcome and notifies the completion handler.
// Completing a run twice notifies twice.
func (m *MemoryCompute) Complete(ctx context.Context, handle string, outcome Outcome) error {
	m.mu.Lock()
	run, ok := m.runs[handle]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, handle)
	}
	run.Outcome = outcome
	handler := m.handler
	tags := maps.Clone(run.Submission.Tags)
	reason := run.CancelReason
	m.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler.HandleCompletion(ctx, CompletionFromTags(handle, tags, outcome, reason))
}

// Runs returns the submitted runs in submission order
func (m *MemoryCompute) Runs() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]Run, 0, len(m.order))
	for _, h := range m.order {
		runs = append(runs, *m.runs[h])
	}
	return runs
}
