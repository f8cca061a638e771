// Package publish stages a build in a scratch directory and overlays it onto
// the published output tree once the build has succeeded.
package publish

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Stage is a scratch directory for one build.
type Stage struct {
	// Dir receives every artifact of the build.
	Dir string
	// Target is the published output directory.
	Target string
}

// NewStage creates an empty scratch directory for a build publishing to target.
func NewStage(target string) (*Stage, error) {
	dir, err := os.MkdirTemp("", "sitebuilder-build-*")
	if err != nil {
		return nil, derrors.IO("create staging directory", os.TempDir(), err)
	}
	return &Stage{Dir: dir, Target: target}, nil
}

// Commit copies the staged tree over Target and removes the scratch
// directory. Files in Target that the build did not produce are kept.
func (s *Stage) Commit() error {
	if err := os.MkdirAll(s.Target, 0o755); err != nil {
		return derrors.IO("create output directory", s.Target, err)
	}
	if err := CopyDir(s.Dir, s.Target); err != nil {
		return derrors.IO("publish", s.Target, err)
	}
	return s.Discard()
}

// Discard removes the scratch directory without publishing.
func (s *Stage) Discard() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return derrors.IO("remove staging directory", s.Dir, err)
	}
	return nil
}

// Clean removes the published output tree.
func Clean(target string) error {
	if err := os.RemoveAll(target); err != nil {
		return derrors.IO("remove output directory", target, err)
	}
	return nil
}

// CopyDir recursively copies src into dst, overwriting files that exist in both.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return fmt.Errorf("copy %s: %w", srcPath, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 -- src is inside the staging directory
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	// #nosec G304 -- dst is inside the configured output directory
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
