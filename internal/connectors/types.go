package connectors

import (
	"regexp"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// Status is the availability of a connector
type Status string

const (
	// StatusAvailable means no job holds the connector
	StatusAvailable Status = "AVAILABLE"
	// StatusInUse means a non-terminal job holds the connector
	StatusInUse Status = "IN_USE"
)

// Defaults applied to container properties on create
const (
	DefaultCPU     = 1.0
	DefaultMemory  = 2048
	DefaultTimeout = 3600

	maxNameLength        = 128
	maxDescriptionLength = 1000
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// EnvironmentVariable is a single name/value pair passed to a job container
type EnvironmentVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResourceRequirements describes the compute reserved for a job container
type ResourceRequirements struct {
	CPU    float64 `json:"cpu"`
	Memory int     `json:"memory"`
}

// ContainerProperties is the execution spec of a connector
type ContainerProperties struct {
	ExecutionRoleARN     string                `json:"execution_role_arn"`
	ImageURI             string                `json:"image_uri"`
	JobRoleARN           string                `json:"job_role_arn"`
	ResourceRequirements ResourceRequirements  `json:"resource_requirements"`
	Timeout              int                   `json:"timeout"`
	Environment          []EnvironmentVariable `json:"environment,omitempty"`
}

// Checkpoint is an opaque blob a connector stores between runs
type Checkpoint struct {
	Data      string    `json:"checkpoint_data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Connector is a registered custom connector
type Connector struct {
	ID                  string              `json:"connector_id"`
	ARN                 string              `json:"arn"`
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	ContainerProperties ContainerProperties `json:"container_properties"`
	Status              Status              `json:"status"`
	Version             int64               `json:"version"`
	Checkpoint          *Checkpoint         `json:"checkpoint,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// ResourceRequirementsInput carries optional resource requirements
type ResourceRequirementsInput struct {
	CPU    *float64 `json:"cpu,omitempty"`
	Memory *int     `json:"memory,omitempty"`
}

// ContainerPropertiesInput carries container properties of a create or
// update request. Nil fields are left unchanged on update.
type ContainerPropertiesInput struct {
	ExecutionRoleARN     *string                    `json:"execution_role_arn,omitempty"`
	ImageURI             *string                    `json:"image_uri,omitempty"`
	JobRoleARN           *string                    `json:"job_role_arn,omitempty"`
	ResourceRequirements *ResourceRequirementsInput `json:"resource_requirements,omitempty"`
	Timeout              *int                       `json:"timeout,omitempty"`
	Environment          *[]EnvironmentVariable     `json:"environment,omitempty"`
}

// CreateRequest is the input of Create
type CreateRequest struct {
	Name                string                   `json:"name"`
	Description         string                   `json:"description,omitempty"`
	ContainerProperties ContainerPropertiesInput `json:"container_properties"`
}

// UpdateRequest is the input of Update. Only non-nil fields are applied.
type UpdateRequest struct {
	Name                *string                   `json:"name,omitempty"`
	Description         *string                   `json:"description,omitempty"`
	ContainerProperties *ContainerPropertiesInput `json:"container_properties,omitempty"`
}

// Validate checks a create request
func (r *CreateRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if len(r.Description) > maxDescriptionLength {
		return service.BadRequestf("description must be at most %d characters", maxDescriptionLength)
	}

	cp := r.ContainerProperties
	required := []struct {
		field string
		value *string
	}{
		{"execution_role_arn", cp.ExecutionRoleARN},
		{"image_uri", cp.ImageURI},
		{"job_role_arn", cp.JobRoleARN},
	}
	for _, r := range required {
		if r.value == nil || *r.value == "" {
			return service.BadRequestf("container_properties.%s is required", r.field)
		}
	}
	return validateContainerInput(&cp)
}

// Validate checks an update request
func (r *UpdateRequest) Validate() error {
	if r.Name != nil {
		if err := validateName(*r.Name); err != nil {
			return err
		}
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLength {
		return service.BadRequestf("description must be at most %d characters", maxDescriptionLength)
	}
	if r.ContainerProperties != nil {
		return validateContainerInput(r.ContainerProperties)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength || !namePattern.MatchString(name) {
		return service.BadRequestf("name must be 1-%d characters of letters, digits and hyphens", maxNameLength)
	}
	return nil
}

func validateContainerInput(cp *ContainerPropertiesInput) error {
	if cp.Timeout != nil && *cp.Timeout < 0 {
		return service.BadRequestf("container_properties.timeout must be >= 0")
	}
	if rr := cp.ResourceRequirements; rr != nil {
		if rr.CPU != nil && *rr.CPU <= 0 {
			return service.BadRequestf("container_properties.resource_requirements.cpu must be positive")
		}
		if rr.Memory != nil && *rr.Memory <= 0 {
			return service.BadRequestf("container_properties.resource_requirements.memory must be positive")
		}
	}
	if cp.Environment != nil {
		for i, env := range *cp.Environment {
			if env.Name == "" {
				return service.BadRequestf("container_properties.environment[%d].name is required", i)
			}
		}
	}
	return nil
}

// apply merges the set fields of in into cp
func (in *ContainerPropertiesInput) apply(cp *ContainerProperties) {
	if in.ExecutionRoleARN != nil {
		cp.ExecutionRoleARN = *in.ExecutionRoleARN
	}
	if in.ImageURI != nil {
		cp.ImageURI = *in.ImageURI
	}
	if in.JobRoleARN != nil {
		cp.JobRoleARN = *in.JobRoleARN
	}
	if in.Timeout != nil {
		cp.Timeout = *in.Timeout
	}
	if rr := in.ResourceRequirements; rr != nil {
		if rr.CPU != nil {
			cp.ResourceRequirements.CPU = *rr.CPU
		}
		if rr.Memory != nil {
			cp.ResourceRequirements.Memory = *rr.Memory
		}
	}
	if in.Environment != nil {
		cp.Environment = append([]EnvironmentVariable(nil), *in.Environment...)
	}
}
