// Package memory implements the store contract in process memory. Documents
// are deep-copied across the API boundary and transactions are serialized by
// a store-wide mutex, so the serializable guarantees the donation workflow
// relies on hold here the same way they do on Firestore. Intended for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bintangula23/kindbox/internal/store"
)

// Store is an in-memory document store.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]store.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]store.Document)}
}

func (s *Store) col(name string) map[string]store.Document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]store.Document)
		s.collections[name] = c
	}
	return c
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.col(collection)[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDoc(doc), nil
}

// List reads every document in a collection, ordered by id for determinism.
func (s *Store) List(ctx context.Context, collection string) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.col(collection)
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		doc := copyDoc(c[id])
		doc["id"] = id
		docs = append(docs, doc)
	}
	return docs, nil
}

// Query reads the documents matching all filters. Only the "==" comparison is
// supported, which is all the service uses.
func (s *Store) Query(ctx context.Context, collection string, filters []store.Filter) ([]store.Document, error) {
	all, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	var out []store.Document
	for _, doc := range all {
		match := true
		for _, f := range filters {
			if f.Op != "==" || !valuesEqual(doc[f.Path], f.Value) {
				match = false
				break
			}
		}
		if match {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Set writes a whole document.
func (s *Store) Set(ctx context.Context, collection, id string, doc store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col(collection)[id] = normalize(doc)
	return nil
}

// Update applies field updates to an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, updates []store.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.col(collection)[id]
	if !ok {
		return store.ErrNotFound
	}
	applyUpdates(doc, updates)
	return nil
}

// Delete removes a document. Absent documents are a no-op, as on Firestore.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.col(collection), id)
	return nil
}

// RunTransaction runs fn against a consistent snapshot and applies its staged
// writes atomically. The store-wide mutex makes transactions fully serial, so
// fn never observes a conflicting commit and is run exactly once.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s}
	if err := fn(t); err != nil {
		return err
	}
	for _, w := range t.writes {
		w()
	}
	return nil
}

// tx stages writes as closures applied on commit.
type tx struct {
	store  *Store
	writes []func()
}

func (t *tx) Get(collection, id string) (store.Document, error) {
	doc, ok := t.store.col(collection)[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDoc(doc), nil
}

func (t *tx) Set(collection, id string, doc store.Document) {
	frozen := normalize(doc)
	t.writes = append(t.writes, func() {
		t.store.col(collection)[id] = frozen
	})
}

func (t *tx) Update(collection, id string, updates []store.Update) {
	t.writes = append(t.writes, func() {
		if doc, ok := t.store.col(collection)[id]; ok {
			applyUpdates(doc, updates)
		}
	})
}

func (t *tx) Delete(collection, id string) {
	t.writes = append(t.writes, func() {
		delete(t.store.col(collection), id)
	})
}

// applyUpdates mutates doc in place with the same semantics as Firestore
// field transforms: union skips present values, remove skips absent ones,
// increment treats a missing field as zero.
func applyUpdates(doc store.Document, updates []store.Update) {
	for _, u := range updates {
		switch v := u.Value.(type) {
		case store.UnionValue:
			arr, _ := doc[u.Path].([]interface{})
			for _, add := range v.Values {
				if !contains(arr, add) {
					arr = append(arr, add)
				}
			}
			doc[u.Path] = arr
		case store.RemoveValue:
			arr, _ := doc[u.Path].([]interface{})
			kept := make([]interface{}, 0, len(arr))
			for _, existing := range arr {
				if !contains(v.Values, existing) {
					kept = append(kept, existing)
				}
			}
			doc[u.Path] = kept
		case store.IncrementValue:
			current, _ := doc[u.Path].(int64)
			doc[u.Path] = current + v.Delta
		default:
			doc[u.Path] = normalizeValue(u.Value)
		}
	}
}

func contains(arr []interface{}, v interface{}) bool {
	for _, existing := range arr {
		if valuesEqual(existing, v) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b interface{}) bool {
	return normalizeValue(a) == normalizeValue(b)
}

// normalize deep-copies a document, converting values to the types the
// Firestore client would hand back: ints widen to int64 and typed slices
// become []interface{}.
func normalize(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case []string:
		arr := make([]interface{}, len(t))
		for i, s := range t {
			arr[i] = s
		}
		return arr
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i, e := range t {
			arr[i] = normalizeValue(e)
		}
		return arr
	default:
		return v
	}
}

func copyDoc(doc store.Document) store.Document {
	return normalize(doc)
}
