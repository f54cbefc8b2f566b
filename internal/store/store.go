// Package store defines the document-store contract the donation workflow is
// built against: keyed documents grouped into collections, plus serializable
// read-modify-write transactions with atomic set-membership and counter
// primitives. The production implementation is Firestore; tests inject the
// in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"
)

// Collection names used across the service.
const (
	Donations = "donations"
	Users     = "users"
	Ratings   = "ratings"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a decoded document: field name to value. Numeric fields decode
// as int64 or float64 and timestamp fields as time.Time, matching what the
// Firestore client produces.
type Document map[string]interface{}

// Update stages one field mutation inside a transaction or direct update.
// Value is either a plain value or one of the operation markers below.
type Update struct {
	Path  string
	Value interface{}
}

// Filter narrows a Query to documents whose field compares to Value.
// Op uses the Firestore comparison syntax; only "==" is needed here.
type Filter struct {
	Path  string
	Op    string
	Value interface{}
}

// UnionValue marks an Update as an idempotent set-union: each value is added
// to the array field only if not already present.
type UnionValue struct{ Values []interface{} }

// RemoveValue marks an Update as a set-remove: each value is removed from the
// array field; removing an absent value is a no-op.
type RemoveValue struct{ Values []interface{} }

// IncrementValue marks an Update as an atomic numeric delta.
type IncrementValue struct{ Delta int64 }

// ArrayUnion builds a set-union update value.
func ArrayUnion(values ...interface{}) UnionValue {
	return UnionValue{Values: values}
}

// ArrayRemove builds a set-remove update value.
func ArrayRemove(values ...interface{}) RemoveValue {
	return RemoveValue{Values: values}
}

// Increment builds an atomic numeric delta update value.
func Increment(delta int64) IncrementValue {
	return IncrementValue{Delta: delta}
}

// Tx is the handle passed to a transaction function. Reads observe a
// consistent snapshot; writes are staged and applied atomically on commit.
// All reads must happen before the first write (Firestore transaction rule).
type Tx interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, doc Document)
	Update(collection, id string, updates []Update)
	Delete(collection, id string)
}

// Store is the document store contract.
//
// RunTransaction runs fn with serializable semantics and retries it
// automatically when a concurrent commit invalidates its snapshot; fn must
// therefore be safe to re-run from scratch. A non-nil error from fn aborts
// the transaction without applying any staged write.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Query(ctx context.Context, collection string, filters []Filter) ([]Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, updates []Update) error
	Delete(ctx context.Context, collection, id string) error
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// --- Document field accessors ---
//
// Documents written by earlier revisions of the mobile app are missing some
// fields, so every accessor takes a fallback.

// String returns the string field at key, or def if absent or mistyped.
func (d Document) String(key, def string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return def
}

// Int returns the numeric field at key as an int, or def.
func (d Document) Int(key string, def int) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the numeric field at key as a float64, or def.
func (d Document) Float(key string, def float64) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Strings returns the string-array field at key, or nil.
func (d Document) Strings(key string) []string {
	raw, ok := d[key].([]interface{})
	if !ok {
		// Already-typed slices appear when a Document round-trips in memory.
		if typed, ok := d[key].([]string); ok {
			out := make([]string, len(typed))
			copy(out, typed)
			return out
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Time returns the timestamp field at key, or the zero time.
func (d Document) Time(key string) time.Time {
	if v, ok := d[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}
