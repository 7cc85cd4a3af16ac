package registry

import (
	"context"
	"errors"
)

// Repository errors.
var (
	// ErrInvalidRegistry indicates the registry file exists but cannot be parsed.
	ErrInvalidRegistry = errors.New("invalid plugin registry")
	// ErrSaveFailed indicates the registry could not be persisted.
	ErrSaveFailed = errors.New("failed to save plugin registry")
)

// Repository is the port for registry persistence.
type Repository interface {
	// Load reads the registry at path. A missing file yields an empty registry
	// and no error. A malformed file yields an empty registry together with an
	// error wrapping ErrInvalidRegistry.
	Load(ctx context.Context, path string) (*Registry, error)

	// Save replaces the registry at path atomically. Errors wrap ErrSaveFailed.
	Save(ctx context.Context, path string, reg *Registry) error

	// Exists returns true if a registry file exists at path.
	Exists(ctx context.Context, path string) bool

	// WriteDefault writes an empty, commented registry to path.
	WriteDefault(ctx context.Context, path string) error
}

// DescriptorDTO is the serializable form of a Descriptor. The key names are
// kept from the original registry format.
type DescriptorDTO struct {
	Jar         string `yaml:"jar"`
	Class       string `yaml:"class"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// DescriptorToDTO converts a Descriptor to its DTO.
func DescriptorToDTO(d Descriptor) DescriptorDTO {
	return DescriptorDTO{
		Jar:         d.ArtifactPath,
		Class:       d.EntryPoint,
		Version:     d.Version,
		Description: d.Description,
	}
}

// DescriptorFromDTO converts a DTO back into a validated Descriptor.
func DescriptorFromDTO(name string, dto DescriptorDTO) (Descriptor, error) {
	d := Descriptor{
		Name:         name,
		ArtifactPath: dto.Jar,
		EntryPoint:   dto.Class,
		Version:      dto.Version,
		Description:  dto.Description,
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
