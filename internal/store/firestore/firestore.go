// Package firestore implements the store contract on Cloud Firestore.
package firestore

import (
	"context"
	"fmt"

	cf "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bintangula23/kindbox/internal/store"
)

// Store wraps a Firestore client.
type Store struct {
	client *cf.Client
}

// New connects to the given Firestore database. credentialsFile may be empty,
// in which case application-default credentials are used; pointing
// FIRESTORE_EMULATOR_HOST at an emulator works as usual for integration
// testing.
func New(ctx context.Context, projectID, databaseID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := cf.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) doc(collection, id string) *cf.DocumentRef {
	return s.client.Collection(collection).Doc(id)
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	snap, err := s.doc(collection, id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return snap.Data(), nil
}

// List reads every document in a collection.
func (s *Store) List(ctx context.Context, collection string) ([]store.Document, error) {
	return collect(s.client.Collection(collection).Documents(ctx))
}

// Query reads the documents matching all filters.
func (s *Store) Query(ctx context.Context, collection string, filters []store.Filter) ([]store.Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Path, f.Op, f.Value)
	}
	return collect(q.Documents(ctx))
}

func collect(it *cf.DocumentIterator) ([]store.Document, error) {
	defer it.Stop()

	var docs []store.Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("iterate: %w", err)
		}
		data := snap.Data()
		data["id"] = snap.Ref.ID
		docs = append(docs, data)
	}
}

// Set writes a whole document, replacing any existing one.
func (s *Store) Set(ctx context.Context, collection, id string, doc store.Document) error {
	_, err := s.doc(collection, id).Set(ctx, map[string]interface{}(doc))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update applies field updates outside a transaction.
func (s *Store) Update(ctx context.Context, collection, id string, updates []store.Update) error {
	_, err := s.doc(collection, id).Update(ctx, translate(updates))
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. Deleting an absent document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.doc(collection, id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// RunTransaction delegates to Firestore's transaction machinery, which
// provides serializable semantics and retries fn on commit conflict.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *cf.Transaction) error {
		t := &tx{store: s, ftx: ftx}
		if err := fn(t); err != nil {
			return err
		}
		return t.err
	})
}

// tx adapts *firestore.Transaction to the store.Tx interface. Staging errors
// from the write methods are held and surfaced when the transaction function
// returns, aborting the commit.
type tx struct {
	store *Store
	ftx   *cf.Transaction
	err   error
}

func (t *tx) Get(collection, id string) (store.Document, error) {
	snap, err := t.ftx.Get(t.store.doc(collection, id))
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tx get %s/%s: %w", collection, id, err)
	}
	return snap.Data(), nil
}

func (t *tx) Set(collection, id string, doc store.Document) {
	if t.err != nil {
		return
	}
	t.err = t.ftx.Set(t.store.doc(collection, id), map[string]interface{}(doc))
}

func (t *tx) Update(collection, id string, updates []store.Update) {
	if t.err != nil {
		return
	}
	t.err = t.ftx.Update(t.store.doc(collection, id), translate(updates))
}

func (t *tx) Delete(collection, id string) {
	if t.err != nil {
		return
	}
	t.err = t.ftx.Delete(t.store.doc(collection, id))
}

// translate maps contract updates onto Firestore field transforms.
func translate(updates []store.Update) []cf.Update {
	out := make([]cf.Update, 0, len(updates))
	for _, u := range updates {
		var value interface{}
		switch v := u.Value.(type) {
		case store.UnionValue:
			value = cf.ArrayUnion(v.Values...)
		case store.RemoveValue:
			value = cf.ArrayRemove(v.Values...)
		case store.IncrementValue:
			value = cf.Increment(v.Delta)
		default:
			value = u.Value
		}
		out = append(out, cf.Update{Path: u.Path, Value: value})
	}
	return out
}
