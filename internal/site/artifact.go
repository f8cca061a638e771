package site

import (
	"os"
	"path/filepath"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

func writeArtifact(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	// #nosec G306 -- the output tree is public
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return derrors.IO("write", path, err)
	}
	return nil
}
