// Package registryfile persists the plugin registry as a YAML file.
package registryfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// Header is written at the top of every registry file.
const Header = `# Jex Plugin Registry
#
# Plugins are managed with:
#   jex --install-plugin <name> --jar <path>
#   jex --update-plugin <name> --jar <path>
#   jex --uninstall-plugin <name>
#
# Entry format:
#
# plugin-name:
#   jar: plugin-file.wasm
#   class: plugin-file.wasm
#   version: 1.0.0
#   description: "Plugin description"
`

// YAMLRepository implements registry.Repository using a YAML file.
type YAMLRepository struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// NewYAMLRepository creates a new YAML-based registry repository.
func NewYAMLRepository(fs ports.FileSystem, logger ports.Logger) *YAMLRepository {
	return &YAMLRepository{fs: fs, logger: logger.Named("registry")}
}

// Load reads the registry from path.
//
// A malformed file is reported with a warning and an error wrapping
// registry.ErrInvalidRegistry; the returned registry is empty but usable so
// read-only callers can carry on.
func (r *YAMLRepository) Load(ctx context.Context, path string) (*registry.Registry, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return registry.New(), nil
		}
		return r.invalid(ctx, path, fmt.Errorf("failed to read registry: %w", err))
	}

	reg, err := Parse(data)
	if err != nil {
		return r.invalid(ctx, path, err)
	}

	r.logger.Debug(ctx, "registry loaded", ports.F("path", path), ports.F("plugins", reg.Len()))
	return reg, nil
}

func (r *YAMLRepository) invalid(ctx context.Context, path string, cause error) (*registry.Registry, error) {
	err := fmt.Errorf("%w: %s: %w", registry.ErrInvalidRegistry, path, cause)
	r.logger.Warn(ctx, "plugin registry is unreadable, treating it as empty",
		ports.F("path", path), ports.F("error", cause.Error()))
	return registry.New(), err
}

// Save writes reg to path atomically. The previous file stays intact if
// anything fails.
func (r *YAMLRepository) Save(ctx context.Context, path string, reg *registry.Registry) error {
	data, err := Marshal(reg)
	if err != nil {
		return fmt.Errorf("%w: %w", registry.ErrSaveFailed, err)
	}

	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", registry.ErrSaveFailed, err)
	}

	if err := r.fs.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", registry.ErrSaveFailed, err)
	}

	r.logger.Debug(ctx, "registry saved", ports.F("path", path), ports.F("plugins", reg.Len()))
	return nil
}

// Exists returns true if a registry file exists at path.
func (r *YAMLRepository) Exists(_ context.Context, path string) bool {
	return r.fs.Exists(path)
}

// WriteDefault writes an empty registry holding only the header comment.
func (r *YAMLRepository) WriteDefault(ctx context.Context, path string) error {
	return r.Save(ctx, path, registry.New())
}

// Parse decodes registry file content. Entries whose value is null, an empty
// string or an empty mapping are treated as deleted.
func Parse(data []byte) (*registry.Registry, error) {
	reg := registry.New()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return reg, nil
	}

	root := resolve(doc.Content[0])
	if isEmpty(root) {
		return reg, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of plugin names", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		value := resolve(root.Content[i+1])

		if isEmpty(value) {
			continue
		}
		if value.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: plugin %q must be a mapping", value.Line, key.Value)
		}

		var dto registry.DescriptorDTO
		if err := value.Decode(&dto); err != nil {
			return nil, fmt.Errorf("line %d: plugin %q: %w", value.Line, key.Value, err)
		}
		d, err := registry.DescriptorFromDTO(key.Value, dto)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", value.Line, err)
		}
		reg.Put(d)
	}

	return reg, nil
}

// Marshal encodes reg in registry order, preceded by Header.
func Marshal(reg *registry.Registry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Header)

	if reg.Len() == 0 {
		return buf.Bytes(), nil
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range reg.Descriptors() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Name}
		value := &yaml.Node{}
		if err := value.Encode(registry.DescriptorToDTO(d)); err != nil {
			return nil, fmt.Errorf("failed to encode plugin %q: %w", d.Name, err)
		}
		root.Content = append(root.Content, key, value)
	}

	buf.WriteString("\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isEmpty(n *yaml.Node) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return n.ShortTag() == "!!null" || n.Value == ""
	case yaml.MappingNode:
		return len(n.Content) == 0
	default:
		return false
	}
}

// Ensure YAMLRepository implements registry.Repository.
var _ registry.Repository = (*YAMLRepository)(nil)
