package testutil

import (
	"fmt"
	"strings"
)

// TestPlugin is one hand-written registry entry.
type TestPlugin struct {
	Name        string
	Jar         string
	Class       string
	Version     string
	Description string
}

// RegistryBuilder builds registry files the way a user would write them,
// including entries left empty to disable them.
type RegistryBuilder struct {
	lines []string
}

// NewRegistryBuilder creates a new registry builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithPlugin adds an entry for a bare module artifact: the jar is
// <name>.wasm and the class names the same file.
func (b *RegistryBuilder) WithPlugin(name string) *RegistryBuilder {
	return b.With(TestPlugin{Name: name, Jar: name + ".wasm", Class: name + ".wasm"})
}

// With adds a fully specified entry.
func (b *RegistryBuilder) With(p TestPlugin) *RegistryBuilder {
	b.lines = append(b.lines,
		fmt.Sprintf("%s:", p.Name),
		fmt.Sprintf("  jar: %s", p.Jar),
		fmt.Sprintf("  class: %s", p.Class),
	)
	if p.Version != "" {
		b.lines = append(b.lines, fmt.Sprintf("  version: %q", p.Version))
	}
	if p.Description != "" {
		b.lines = append(b.lines, fmt.Sprintf("  description: %q", p.Description))
	}
	return b
}

// WithDisabled adds a key with no value, which readers must skip.
func (b *RegistryBuilder) WithDisabled(name string) *RegistryBuilder {
	b.lines = append(b.lines, fmt.Sprintf("%s:", name))
	return b
}

// WithComment adds a comment line.
func (b *RegistryBuilder) WithComment(text string) *RegistryBuilder {
	b.lines = append(b.lines, "# "+text)
	return b
}

// ToYAML returns the registry file content.
func (b *RegistryBuilder) ToYAML() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}
