// Package discovery walks the content root, fingerprints every file and
// decides which ones the current build has to process.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Classification is the outcome of comparing a file against its stored fingerprint.
type Classification int

const (
	// Excluded files are unchanged and not special; they are skipped entirely.
	Excluded Classification = iota
	New
	Changed
	// Special files are unchanged but always rebuilt because they aggregate other pages.
	Special
)

func (c Classification) String() string {
	switch c {
	case New:
		return "new"
	case Changed:
		return "changed"
	case Special:
		return "special"
	default:
		return "excluded"
	}
}

// Entry is one discovered source file selected for this build.
type Entry struct {
	// Path is the slash-separated path as walked, including the root prefix.
	// It is the fingerprint key.
	Path string
	// Rel is Path relative to the content root.
	Rel     string
	Content []byte
	Hash    string
	// Fresh is true when no fingerprint existed before this build.
	Fresh bool
	Class Classification
}

// FingerprintStore is the persistence contract discovery relies on.
type FingerprintStore interface {
	Lookup(ctx context.Context, path string) (string, bool, error)
	Insert(ctx context.Context, path, hash string) error
	Update(ctx context.Context, path, hash string) error
	Delete(ctx context.Context, path string) error
}

// Fingerprint returns the 16 hex digit xxhash of b.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// Classify applies the incremental build policy to a single file.
func Classify(stored string, found bool, hash string, special bool) Classification {
	switch {
	case !found:
		return New
	case stored != hash:
		return Changed
	case special:
		return Special
	default:
		return Excluded
	}
}

// Discoverer walks a content root and classifies its files.
type Discoverer struct {
	store   FingerprintStore
	special []string
	journal *Journal
}

// NewDiscoverer creates a discoverer. Fingerprint writes are recorded in
// journal so the caller can undo them; journal may be nil.
func NewDiscoverer(store FingerprintStore, specialPages []string, journal *Journal) *Discoverer {
	return &Discoverer{store: store, special: specialPages, journal: journal}
}

// Discover returns the New, Changed and Special entries under root, recording
// the fingerprint of each New or Changed entry as soon as it is classified.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]Entry, error) {
	var entries []Entry
	seen := 0

	err := filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return derrors.IO("walk", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != root && strings.HasPrefix(de.Name(), ".") {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			return nil
		}

		seen++
		entry, keep, err := d.classifyFile(ctx, root, path)
		if err != nil {
			return err
		}
		if keep {
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Discovered entries", logfields.Count(seen), slog.Int("selected", len(entries)))
	return entries, nil
}

func (d *Discoverer) classifyFile(ctx context.Context, root, path string) (Entry, bool, error) {
	// #nosec G304 -- path comes from walking the configured content root
	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false, derrors.IO("read", path, err)
	}

	key := filepath.ToSlash(path)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Entry{}, false, derrors.IO("relativize", path, err)
	}
	hash := Fingerprint(content)

	stored, found, err := d.store.Lookup(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	class := Classify(stored, found, hash, config.IsSpecialPath(key, d.special))
	slog.Debug("Classified entry", logfields.Path(key), logfields.Classification(class.String()), logfields.Hash(hash))

	switch class {
	case Excluded:
		return Entry{}, false, nil
	case New:
		if err := d.store.Insert(ctx, key, hash); err != nil {
			return Entry{}, false, err
		}
		d.journal.record(key, "", false)
	case Changed:
		if err := d.store.Update(ctx, key, hash); err != nil {
			return Entry{}, false, err
		}
		d.journal.record(key, stored, true)
	}

	return Entry{
		Path:    key,
		Rel:     filepath.ToSlash(rel),
		Content: content,
		Hash:    hash,
		Fresh:   !found,
		Class:   class,
	}, true, nil
}
