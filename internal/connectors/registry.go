// Package connectors manages custom connector resources. Every mutation is an
// optimistic read-modify-write guarded by the connector version; a stale
// version is reported as a conflict and never retried here.
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/connectors Registry

// Registry defines the operations on connector resources
type Registry interface {
	// Create registers a new connector in the AVAILABLE state
	Create(ctx context.Context, scope service.Scope, req *CreateRequest) (*Connector, error)
	// Get returns a connector
	Get(ctx context.Context, scope service.Scope, id string) (*Connector, error)
	// List returns one page of connectors and the cursor of the next page
	List(ctx context.Context, scope service.Scope, opts ...service.Option) ([]*Connector, string, error)
	// Update overwrites the fields set in req
	Update(ctx context.Context, scope service.Scope, id string, req *UpdateRequest) (*Connector, error)
	// UpdateStatus sets the connector status
	UpdateStatus(ctx context.Context, scope service.Scope, id string, status Status) (*Connector, error)
	// Acquire moves an AVAILABLE connector to IN_USE
	Acquire(ctx context.Context, scope service.Scope, id string) (*Connector, error)
	// Delete removes a connector that is not IN_USE
	Delete(ctx context.Context, scope service.Scope, id string) error
	// PutCheckpoint stores the connector checkpoint
	PutCheckpoint(ctx context.Context, scope service.Scope, id, data string) (*Checkpoint, error)
	// GetCheckpoint returns the connector checkpoint
	GetCheckpoint(ctx context.Context, scope service.Scope, id string) (*Checkpoint, error)
	// DeleteCheckpoint removes the connector checkpoint
	DeleteCheckpoint(ctx context.Context, scope service.Scope, id string) error
}

// Option configures the registry
type Option func(*registry)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *registry) {
		r.now = now
	}
}

type registry struct {
	store kv.Store
	now   func() time.Time
}

var _ Registry = (*registry)(nil)

// New returns a Registry persisting connectors in store
func New(store kv.Store, opts ...Option) Registry {
	r := &registry{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func resourceName(id string) string {
	return "custom connector " + id
}

func (r *registry) Create(ctx context.Context, scope service.Scope, req *CreateRequest) (*Connector, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	id := service.NewConnectorID()
	c := &Connector{
		ID:          id,
		ARN:         scope.ConnectorARN(id),
		Name:        req.Name,
		Description: req.Description,
		ContainerProperties: ContainerProperties{
			ResourceRequirements: ResourceRequirements{CPU: DefaultCPU, Memory: DefaultMemory},
			Timeout:              DefaultTimeout,
		},
		Status:    StatusAvailable,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	req.ContainerProperties.apply(&c.ContainerProperties)

	item, err := toItem(scope, c)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.Put(ctx, item, kv.Condition{MustNotExist: true}); err != nil {
		if errors.Is(err, kv.ErrConditionFailed) {
			return nil, service.Conflictf("Connector with ID %s already exists", id)
		}
		return nil, service.FromStore(err, resourceName(id))
	}

	slog.InfoContext(ctx, "Created connector", "connector_id", id, "scope", scope.String())
	return c, nil
}

func (r *registry) Get(ctx context.Context, scope service.Scope, id string) (*Connector, error) {
	item, err := r.store.Get(ctx, kv.TableConnectors, scope.String(), id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, service.NotFoundf("Connector %s not found", id)
		}
		return nil, service.FromStore(err, resourceName(id))
	}
	return fromItem(item)
}

func (r *registry) List(ctx context.Context, scope service.Scope, opts ...service.Option) ([]*Connector, string, error) {
	listOpts, err := service.NewListOptions(opts...)
	if err != nil {
		return nil, "", err
	}

	page, err := r.store.List(ctx, kv.Query{
		Table:  kv.TableConnectors,
		Scope:  scope.String(),
		Limit:  listOpts.Limit,
		Cursor: listOpts.Cursor,
	})
	if err != nil {
		return nil, "", service.FromStore(err, "connectors")
	}

	result := make([]*Connector, 0, len(page.Items))
	for i := range page.Items {
		c, err := fromItem(&page.Items[i])
		if err != nil {
			return nil, "", err
		}
		result = append(result, c)
	}
	return result, page.Cursor, nil
}

func (r *registry) Update(ctx context.Context, scope service.Scope, id string, req *UpdateRequest) (*Connector, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return r.mutate(ctx, scope, id, func(c *Connector) error {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.ContainerProperties != nil {
			req.ContainerProperties.apply(&c.ContainerProperties)
		}
		return nil
	})
}

func (r *registry) UpdateStatus(ctx context.Context, scope service.Scope, id string, status Status) (*Connector, error) {
	c, err := r.mutate(ctx, scope, id, func(c *Connector) error {
		c.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Updated connector status", "connector_id", id, "status", status, "version", c.Version)
	return c, nil
}

func (r *registry) Acquire(ctx context.Context, scope service.Scope, id string) (*Connector, error) {
	return r.mutate(ctx, scope, id, func(c *Connector) error {
		if c.Status != StatusAvailable {
			return service.Conflictf("Connector %s is not AVAILABLE (status: %s)", id, c.Status)
		}
		c.Status = StatusInUse
		return nil
	})
}

func (r *registry) Delete(ctx context.Context, scope service.Scope, id string) error {
	err := r.store.Delete(ctx, kv.TableConnectors, scope.String(), id, kv.Condition{
		MustExist: true,
		StatusNot: string(StatusInUse),
	})
	if err == nil {
		slog.InfoContext(ctx, "Deleted connector", "connector_id", id, "scope", scope.String())
		return nil
	}
	if !errors.Is(err, kv.ErrConditionFailed) {
		return service.FromStore(err, resourceName(id))
	}

	// The item is either absent or IN_USE; a read tells which.
	_, getErr := r.store.Get(ctx, kv.TableConnectors, scope.String(), id)
	switch {
	case getErr == nil:
		return service.Conflictf("Connector '%s' is currently IN_USE", id)
	case errors.Is(getErr, kv.ErrNotFound):
		return service.NotFoundf("Connector '%s' not found", id)
	default:
		return service.FromStore(getErr, resourceName(id))
	}
}

func (r *registry) PutCheckpoint(ctx context.Context, scope service.Scope, id, data string) (*Checkpoint, error) {
	c, err := r.mutate(ctx, scope, id, func(c *Connector) error {
		now := r.now()
		if c.Checkpoint == nil {
			c.Checkpoint = &Checkpoint{CreatedAt: now}
		}
		c.Checkpoint.Data = data
		c.Checkpoint.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.Checkpoint, nil
}

func (r *registry) GetCheckpoint(ctx context.Context, scope service.Scope, id string) (*Checkpoint, error) {
	c, err := r.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if c.Checkpoint == nil {
		return nil, service.NotFoundf("Checkpoint for connector '%s' not found", id)
	}
	return c.Checkpoint, nil
}

func (r *registry) DeleteCheckpoint(ctx context.Context, scope service.Scope, id string) error {
	_, err := r.mutate(ctx, scope, id, func(c *Connector) error {
		if c.Checkpoint == nil {
			return service.NotFoundf("No checkpoint to delete for connector '%s'", id)
		}
		c.Checkpoint = nil
		return nil
	})
	return err
}

// mutate applies fn in one optimistic transaction on the stored connector.
func (r *registry) mutate(ctx context.Context, scope service.Scope, id string, fn func(*Connector) error) (*Connector, error) {
	var updated *Connector
	item, err := kv.Transact(ctx, r.store, kv.TableConnectors, scope.String(), id, func(cur kv.Item) (kv.Item, error) {
		c, err := fromItem(&cur)
		if err != nil {
			return kv.Item{}, err
		}
		if err := fn(c); err != nil {
			return kv.Item{}, err
		}
		c.Version = cur.Version + 1
		c.UpdatedAt = r.now()
		updated = c
		return toItem(scope, c)
	})
	if err != nil {
		switch {
		case errors.Is(err, kv.ErrNotFound):
			return nil, service.NotFoundf("Connector '%s' not found", id)
		case errors.Is(err, kv.ErrConditionFailed):
			return nil, &service.Error{
				Kind:    service.ErrConflict,
				Message: fmt.Sprintf("Connector '%s' was modified by another process", id),
				Err:     err,
			}
		default:
			return nil, service.FromStore(err, resourceName(id))
		}
	}
	updated.Version = item.Version
	return updated, nil
}

func toItem(scope service.Scope, c *Connector) (kv.Item, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return kv.Item{}, service.Internal(err, "failed to encode connector")
	}
	return kv.Item{
		Table:   kv.TableConnectors,
		Scope:   scope.String(),
		Key:     c.ID,
		Status:  string(c.Status),
		Version: c.Version,
		Data:    data,
	}, nil
}

func fromItem(item *kv.Item) (*Connector, error) {
	var c Connector
	if err := json.Unmarshal(item.Data, &c); err != nil {
		return nil, service.Internal(err, "failed to decode connector "+item.Key)
	}
	c.Status = Status(item.Status)
	c.Version = item.Version
	return &c, nil
}
