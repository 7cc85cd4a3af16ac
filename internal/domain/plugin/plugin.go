// Package plugin defines the contract between the host and its plugins.
//
// Built-in commands and artifact-loaded modules both satisfy Plugin, so the
// dispatcher never needs to know where a command came from.
package plugin

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Plugin is the capability every executable command provides.
type Plugin interface {
	// Name returns the command name.
	Name() string
	// Execute runs the command with the arguments that followed its name.
	// A non-zero exit status is reported as *ExitError.
	Execute(ctx context.Context, args []string) error
	// DeclaredOptions lists the options the plugin documents, if any.
	DeclaredOptions() []string
}

// Closer is implemented by plugins holding resources (such as a loaded
// WebAssembly runtime) that must be released after the invocation.
type Closer interface {
	Close(ctx context.Context) error
}

// Close releases p if it holds resources.
func Close(ctx context.Context, p Plugin) error {
	if c, ok := p.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

// IO carries the standard streams of an invocation.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO returns the process streams.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// WithDefaults fills unset streams: stdin becomes empty, outputs are discarded.
func (s IO) WithDefaults() IO {
	if s.In == nil {
		s.In = eofReader{}
	}
	if s.Out == nil {
		s.Out = io.Discard
	}
	if s.Err == nil {
		s.Err = io.Discard
	}
	return s
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// ExitError reports a non-zero exit status from a plugin.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Exit returns nil for code 0 and *ExitError otherwise.
func Exit(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}
