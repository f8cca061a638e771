package output

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/discovery"
)

// StaticFile is copied byte for byte to static/<subpath> in the output tree.
type StaticFile struct {
	Source  string
	OutPath string

	content []byte
	hash    string
	fresh   bool
}

// NewStaticFile mirrors e below the output's static directory.
func NewStaticFile(e discovery.Entry) *StaticFile {
	return &StaticFile{
		Source:  e.Path,
		OutPath: e.Rel,
		content: e.Content,
		hash:    e.Hash,
		fresh:   e.Fresh,
	}
}

func (s *StaticFile) Write(_ context.Context, oc *Context) error {
	return writeFile(oc.Dir, s.OutPath, s.content)
}

func (s *StaticFile) Path() string { return s.Source }
func (s *StaticFile) Hash() string { return s.hash }
func (s *StaticFile) Fresh() bool  { return s.fresh }
