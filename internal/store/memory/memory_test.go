package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bintangula23/kindbox/internal/store"
)

func TestGetMissing(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "things", "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "things", "a", store.Document{"count": 3, "tags": []string{"x"}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	doc, err := s.Get(ctx, "things", "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := doc.Int("count", 0); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if got := doc.Strings("tags"); len(got) != 1 || got[0] != "x" {
		t.Errorf("tags = %v, want [x]", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{"name": "first"})
	doc, _ := s.Get(ctx, "things", "a")
	doc["name"] = "mutated"

	again, _ := s.Get(ctx, "things", "a")
	if got := again.String("name", ""); got != "first" {
		t.Errorf("stored document mutated through returned copy: name = %q", got)
	}
}

func TestListInjectsID(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "b", store.Document{"n": 2})
	s.Set(ctx, "things", "a", store.Document{"n": 1})

	docs, err := s.List(ctx, "things")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("List returned %d docs, want 2", len(docs))
	}
	if docs[0].String("id", "") != "a" || docs[1].String("id", "") != "b" {
		t.Errorf("List order = [%s %s], want [a b]",
			docs[0].String("id", ""), docs[1].String("id", ""))
	}
}

func TestQueryEquality(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{"owner": "u1"})
	s.Set(ctx, "things", "b", store.Document{"owner": "u2"})
	s.Set(ctx, "things", "c", store.Document{"owner": "u1"})

	docs, err := s.Query(ctx, "things", []store.Filter{{Path: "owner", Op: "==", Value: "u1"}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Query returned %d docs, want 2", len(docs))
	}
}

func TestUpdateUnionSkipsPresent(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{"members": []string{"u1"}})
	err := s.Update(ctx, "things", "a", []store.Update{
		{Path: "members", Value: store.ArrayUnion("u1", "u2")},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	doc, _ := s.Get(ctx, "things", "a")
	if got := doc.Strings("members"); len(got) != 2 {
		t.Errorf("members = %v, want exactly [u1 u2]", got)
	}
}

func TestUpdateRemoveSkipsAbsent(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{"members": []string{"u1", "u2"}})
	err := s.Update(ctx, "things", "a", []store.Update{
		{Path: "members", Value: store.ArrayRemove("u2", "u3")},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	doc, _ := s.Get(ctx, "things", "a")
	if got := doc.Strings("members"); len(got) != 1 || got[0] != "u1" {
		t.Errorf("members = %v, want [u1]", got)
	}
}

func TestUpdateIncrementMissingField(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{})
	s.Update(ctx, "things", "a", []store.Update{{Path: "n", Value: store.Increment(2)}})
	s.Update(ctx, "things", "a", []store.Update{{Path: "n", Value: store.Increment(-1)}})

	doc, _ := s.Get(ctx, "things", "a")
	if got := doc.Int("n", 0); got != 1 {
		t.Errorf("n = %d, want 1", got)
	}
}

func TestTransactionAppliesAllWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{"n": 1})
	err := s.RunTransaction(ctx, func(tx store.Tx) error {
		if _, err := tx.Get("things", "a"); err != nil {
			return err
		}
		tx.Update("things", "a", []store.Update{{Path: "n", Value: store.Increment(1)}})
		tx.Set("things", "b", store.Document{"n": 10})
		return nil
	})
	if err != nil {
		t.Fatalf("RunTransaction failed: %v", err)
	}

	a, _ := s.Get(ctx, "things", "a")
	b, _ := s.Get(ctx, "things", "b")
	if a.Int("n", 0) != 2 || b.Int("n", 0) != 10 {
		t.Errorf("post-commit state: a.n=%d b.n=%d, want 2 and 10", a.Int("n", 0), b.Int("n", 0))
	}
}

func TestTransactionAbortDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "things", "a", store.Document{"n": 1})
	boom := fmt.Errorf("boom")
	err := s.RunTransaction(ctx, func(tx store.Tx) error {
		tx.Update("things", "a", []store.Update{{Path: "n", Value: store.Increment(5)}})
		tx.Delete("things", "a")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}

	doc, err := s.Get(ctx, "things", "a")
	if err != nil {
		t.Fatalf("document deleted by aborted transaction")
	}
	if got := doc.Int("n", 0); got != 1 {
		t.Errorf("n = %d after abort, want 1", got)
	}
}
