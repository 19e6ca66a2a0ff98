package memo

import (
	"errors"
	"slices"
	"testing"

	"github.com/zygi/miniperscache/storage"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("square", false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register("square", false)
	var de *DuplicateTagError
	if !errors.As(err, &de) || de.Tag != "square" {
		t.Fatalf("Register(duplicate) error = %v, want *DuplicateTagError", err)
	}
	if !errors.Is(err, ErrDuplicateTag) {
		t.Error("expected errors.Is(err, ErrDuplicateTag)")
	}

	if err := r.Register("square", true); err != nil {
		t.Errorf("Register(force) error = %v", err)
	}
	if err := r.Register("cube", true); err != nil {
		t.Errorf("Register(force, new tag) error = %v", err)
	}
	if r.Registered("cube") {
		t.Error("forced registration should not claim the tag")
	}

	if err := r.Register("", false); !errors.Is(err, storage.ErrInvalidTag) {
		t.Errorf("Register(empty) error = %v, want ErrInvalidTag", err)
	}

	_ = r.Register("abs", false)
	if got := r.Tags(); !slices.Equal(got, []string{"abs", "square"}) {
		t.Errorf("Tags() = %v", got)
	}

	r.Reset()
	if len(r.Tags()) != 0 || r.Registered("square") {
		t.Error("Reset() should forget every tag")
	}
}
