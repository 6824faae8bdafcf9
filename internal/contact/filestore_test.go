package contact

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "contacts.json"))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		contact Contact
		wantErr bool
	}{
		{"valid", Contact{Name: "Amina", Phone: "+254712345678"}, false},
		{"missing name", Contact{Phone: "+254712345678"}, true},
		{"missing phone", Contact{Name: "Amina"}, true},
		{"wrong prefix", Contact{Name: "Amina", Phone: "0712345678"}, true},
		{"too short", Contact{Name: "Amina", Phone: "+25471234567"}, true},
		{"too long", Contact{Name: "Amina", Phone: "+2547123456789"}, true},
		{"letters", Contact{Name: "Amina", Phone: "+25471234567a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.contact.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileStore_CRUD(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, Contact{Name: "Amina", Phone: "+254712345678", Relationship: "sister"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.ID == "" {
		t.Fatal("expected store-assigned ID")
	}

	added.Phone = "+254723456789"
	if err := s.Update(ctx, added); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Phone != "+254723456789" {
		t.Fatalf("unexpected list after update: %+v", list)
	}

	if err := s.Delete(ctx, added.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, added.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestFileStore_InvalidContactRejected(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Add(context.Background(), Contact{Name: "Bob", Phone: "12345"}); err == nil {
		t.Fatal("expected validation error")
	}
	list, _ := s.List(context.Background())
	if len(list) != 0 {
		t.Errorf("store should be empty after rejected add, got %+v", list)
	}
}

func TestFileStore_Primary(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Primary(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Primary on empty store: err = %v, want ErrNotFound", err)
	}

	first, _ := s.Add(ctx, Contact{Name: "Amina", Phone: "+254712345678"})
	marked, _ := s.Add(ctx, Contact{Name: "Wanjiku", Phone: "+254723456789", IsPrimary: true})

	got, err := s.Primary(ctx)
	if err != nil {
		t.Fatalf("Primary: %v", err)
	}
	if got.ID != marked.ID {
		t.Errorf("Primary = %q, want marked contact %q", got.ID, marked.ID)
	}

	// Without an explicit primary the first contact stands in.
	if err := s.Delete(ctx, marked.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.Primary(ctx)
	if err != nil {
		t.Fatalf("Primary: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("Primary fallback = %q, want first contact %q", got.ID, first.ID)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contacts.json")
	ctx := context.Background()

	added, err := NewFileStore(path).Add(ctx, Contact{Name: "Amina", Phone: "+254712345678"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	list, err := NewFileStore(path).List(ctx)
	if err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
	if len(list) != 1 || list[0].ID != added.ID {
		t.Fatalf("expected contact %q to survive reopen, got %+v", added.ID, list)
	}
}
