package incident

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/salama-app/salama/pkg/geo"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "incidents.json"))
}

func TestFileStore_AppendRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	in := Incident{
		Type:        TypeEmergency,
		Location:    &geo.Position{Latitude: -1.2921, Longitude: 36.8219},
		DangerWords: []string{"mauaji yametokea"},
	}

	stored, err := s.Append(ctx, in)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected store-assigned ID")
	}
	if stored.Timestamp.IsZero() {
		t.Error("expected store-assigned timestamp")
	}

	list, err := s.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 incident, got %d", len(list))
	}
	got := list[0]
	if got.ID != stored.ID || !got.Timestamp.Equal(stored.Timestamp) || got.Type != TypeEmergency {
		t.Errorf("drained incident %+v does not match appended %+v", got, stored)
	}
	if got.Location == nil || got.Location.Latitude != in.Location.Latitude {
		t.Errorf("location not preserved: %+v", got.Location)
	}
	if len(got.DangerWords) != 1 || got.DangerWords[0] != "mauaji yametokea" {
		t.Errorf("danger words not preserved: %v", got.DangerWords)
	}
}

func TestFileStore_PresetIDAndTimestampKept(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stored, err := s.Append(context.Background(), Incident{ID: "fixed-id", Timestamp: ts, Type: TypeSafe})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if stored.ID != "fixed-id" {
		t.Errorf("ID = %q, want fixed-id", stored.ID)
	}
	if !stored.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", stored.Timestamp, ts)
	}
}

func TestFileStore_InvalidTypeRejected(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Append(context.Background(), Incident{Type: "panic"}); err == nil {
		t.Fatal("expected error for invalid incident type")
	}

	n, err := s.PendingCount(context.Background())
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if n != 0 {
		t.Errorf("pending count = %d after failed append, want 0", n)
	}
}

func TestFileStore_FIFOOrder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		stored, err := s.Append(ctx, Incident{Type: TypeEmergency})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		ids = append(ids, stored.ID)
	}

	list, err := s.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 incidents, got %d", len(list))
	}
	for i, inc := range list {
		if inc.ID != ids[i] {
			t.Errorf("position %d: got %q, want %q (insertion order)", i, inc.ID, ids[i])
		}
	}
}

func TestFileStore_PendingCountMatchesDrain(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	check := func() {
		t.Helper()
		n, err := s.PendingCount(ctx)
		if err != nil {
			t.Fatalf("PendingCount: %v", err)
		}
		list, err := s.Drain(ctx)
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
		if n != len(list) {
			t.Fatalf("pending count %d != drain length %d", n, len(list))
		}
	}

	check()
	a, _ := s.Append(ctx, Incident{Type: TypeEmergency})
	check()
	b, _ := s.Append(ctx, Incident{Type: TypeSafe})
	check()
	if err := s.Remove(ctx, []string{a.ID}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	check()
	if err := s.Remove(ctx, []string{b.ID}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	check()
}

func TestFileStore_RemoveIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Append(ctx, Incident{Type: TypeEmergency})
	b, _ := s.Append(ctx, Incident{Type: TypeSafe})

	if err := s.Remove(ctx, []string{a.ID}); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := s.Remove(ctx, []string{a.ID}); err != nil {
		t.Fatalf("second Remove of same id: %v", err)
	}
	if err := s.Remove(ctx, []string{"never-existed"}); err != nil {
		t.Fatalf("Remove of unknown id: %v", err)
	}

	list, err := s.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("expected only %q left, got %+v", b.ID, list)
	}
}

func TestFileStore_ClearAll(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, Incident{Type: TypeEmergency})
	s.Append(ctx, Incident{Type: TypeSafe})

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	n, err := s.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if n != 0 {
		t.Errorf("pending count = %d after ClearAll, want 0", n)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "incidents.json")
	ctx := context.Background()

	first := NewFileStore(path)
	stored, err := first.Append(ctx, Incident{Type: TypeEmergency, DangerWords: []string{"bunduki"}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A new store over the same file sees the queued incident.
	second := NewFileStore(path)
	list, err := second.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain after reopen: %v", err)
	}
	if len(list) != 1 || list[0].ID != stored.ID {
		t.Fatalf("expected incident %q to survive reopen, got %+v", stored.ID, list)
	}
}

func TestFileStore_ClosedStoreRejectsOps(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.Close()

	if _, err := s.Append(context.Background(), Incident{Type: TypeSafe}); err != ErrStoreClosed {
		t.Errorf("Append after Close: err = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Drain(context.Background()); err != ErrStoreClosed {
		t.Errorf("Drain after Close: err = %v, want ErrStoreClosed", err)
	}
}

func TestFileStore_UniqueIDs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		stored, err := s.Append(ctx, Incident{Type: TypeEmergency})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if seen[stored.ID] {
			t.Fatalf("duplicate ID %q", stored.ID)
		}
		seen[stored.ID] = true
	}
}
