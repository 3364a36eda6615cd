package apikeys

import (
	"errors"
	"testing"
)

func TestNewManager_Empty(t *testing.T) {
	if _, err := NewManager("test", nil); !errors.Is(err, ErrNoKeysAvailable) {
		t.Errorf("expected ErrNoKeysAvailable, got %v", err)
	}
	if _, err := NewManager("test", []string{""}); !errors.Is(err, ErrNoKeysAvailable) {
		t.Errorf("expected ErrNoKeysAvailable for blank key, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	km, err := NewManager("test", []string{"k1", "k2"})
	if err != nil {
		t.Fatal(err)
	}

	if km.Current() != "k1" {
		t.Fatalf("expected k1, got %s", km.Current())
	}
	if err := km.Rotate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if km.Current() != "k2" {
		t.Fatalf("expected k2, got %s", km.Current())
	}
	if err := km.Rotate(); !errors.Is(err, ErrAllKeysExhausted) {
		t.Fatalf("expected ErrAllKeysExhausted, got %v", err)
	}
	if km.Current() != "k1" {
		t.Errorf("expected rotation to start over at k1, got %s", km.Current())
	}
	if km.Len() != 2 {
		t.Errorf("expected 2 keys, got %d", km.Len())
	}
}
