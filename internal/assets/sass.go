// Package assets compiles stylesheets and scripts and inlines remote fonts
// into SVG drawings.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// StyleCompiler turns a stylesheet source into compressed CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, path string, src []byte) ([]byte, error)
}

// SassCompiler runs the dart-sass command line tool.
type SassCompiler struct {
	// Binary is the sass executable, looked up in PATH when not absolute.
	Binary string
}

// NewSassCompiler returns a compiler invoking binary, or "sass" when empty.
func NewSassCompiler(binary string) *SassCompiler {
	if binary == "" {
		binary = "sass"
	}
	return &SassCompiler{Binary: binary}
}

// Compile feeds src to sass on stdin. Imports resolve relative to path's directory.
func (s *SassCompiler) Compile(ctx context.Context, path string, src []byte) ([]byte, error) {
	args := []string{
		"--stdin",
		"--style=compressed",
		"--no-source-map",
		"--load-path=" + filepath.Dir(path),
	}
	// #nosec G204 -- binary comes from site configuration
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	cmd.Stdin = bytes.NewReader(src)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("sass %s: %w", path, err)
		}
		return nil, fmt.Errorf("sass %s: %w: %s", path, err, msg)
	}
	return stdout.Bytes(), nil
}
