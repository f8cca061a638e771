package discovery

import (
	"context"
	"errors"
	"sync"
)

type priorState struct {
	hash    string
	existed bool
}

// Journal remembers the fingerprint each path had before discovery rewrote it,
// so writes for entries that were never published can be undone.
type Journal struct {
	mu    sync.Mutex
	prior map[string]priorState
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{prior: make(map[string]priorState)}
}

func (j *Journal) record(path, hash string, existed bool) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.prior[path]; ok {
		return
	}
	j.prior[path] = priorState{hash: hash, existed: existed}
}

// Len returns the number of journaled paths.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.prior)
}

// Revert restores the prior fingerprint of path: the old hash when one
// existed, no row otherwise. Unjournaled paths are left alone.
func (j *Journal) Revert(ctx context.Context, store FingerprintStore, path string) error {
	j.mu.Lock()
	st, ok := j.prior[path]
	delete(j.prior, path)
	j.mu.Unlock()
	if !ok {
		return nil
	}
	if st.existed {
		return store.Update(ctx, path, st.hash)
	}
	return store.Delete(ctx, path)
}

// RevertAll reverts every journaled path.
func (j *Journal) RevertAll(ctx context.Context, store FingerprintStore) error {
	j.mu.Lock()
	paths := make([]string, 0, len(j.prior))
	for p := range j.prior {
		paths = append(paths, p)
	}
	j.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := j.Revert(ctx, store, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
