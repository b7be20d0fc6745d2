package service

import (
	"fmt"
)

const (
	// DefaultPageSize is used when a list request does not set a limit
	DefaultPageSize = 50
	// MaxPageSize is the largest accepted list limit
	MaxPageSize = 100
)

// Option is a function that sets an option for list operations
type Option func(T any) error

type cursorOption interface {
	setCursor(cursor string) error
}

type limitOption interface {
	setLimit(limit int) error
}

type statusOption interface {
	setStatus(status string) error
}

// ListOptions holds the pagination settings shared by all list operations
type ListOptions struct {
	Limit  int
	Cursor string
}

// NewListOptions applies opts to list options with the default page size.
func NewListOptions(opts ...Option) (*ListOptions, error) {
	o := &ListOptions{Limit: DefaultPageSize}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *ListOptions) setCursor(cursor string) error {
	o.Cursor = cursor
	return nil
}

func (o *ListOptions) setLimit(limit int) error {
	o.Limit = limit
	return nil
}

// ListJobsOptions adds a status filter to the list options
type ListJobsOptions struct {
	ListOptions
	Status string
}

// NewListJobsOptions applies opts to job list options with the default page size.
func NewListJobsOptions(opts ...Option) (*ListJobsOptions, error) {
	o := &ListJobsOptions{ListOptions: ListOptions{Limit: DefaultPageSize}}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *ListJobsOptions) setStatus(status string) error {
	o.Status = status
	return nil
}

// WithCursor sets the continuation cursor returned by a previous list call
func WithCursor(cursor string) Option {
	return func(o any) error {
		if cursor == "" {
			return BadRequestf("invalid cursor: %s", cursor)
		}

		switch o := o.(type) {
		case cursorOption:
			return o.setCursor(cursor)
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
	}
}

// WithLimit sets the page size of a list operation
func WithLimit(limit int) Option {
	return func(o any) error {
		if limit < 1 || limit > MaxPageSize {
			return BadRequestf("limit must be between 1 and %d, got %d", MaxPageSize, limit)
		}

		switch o := o.(type) {
		case limitOption:
			return o.setLimit(limit)
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
	}
}

// WithStatus filters a job list by status
func WithStatus(status string) Option {
	return func(o any) error {
		if status == "" {
			return BadRequestf("invalid status: %s", status)
		}

		switch o := o.(type) {
		case statusOption:
			return o.setStatus(status)
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
	}
}
