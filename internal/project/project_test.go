package project

import (
	"context"
	"errors"
	"testing"
)

func TestMemStoreFind(t *testing.T) {
	s := NewMemStore()
	added := s.Add("demo", "alert(1)")

	got, err := s.FindByName(context.Background(), "demo")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got.ID != added.ID || got.Name != "demo" || got.Autoexecute != "alert(1)" {
		t.Errorf("found project = %+v", got)
	}
}

func TestMemStoreNotFound(t *testing.T) {
	s := NewMemStore()
	_, err := s.FindByName(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreReturnsCopy(t *testing.T) {
	s := NewMemStore()
	s.Add("demo", "")

	got, _ := s.FindByName(context.Background(), "demo")
	got.Name = "mutated"

	again, _ := s.FindByName(context.Background(), "demo")
	if again.Name != "demo" {
		t.Error("FindByName did not return a copy; mutation leaked into store")
	}
}

func TestMemStoreAssignsDistinctIDs(t *testing.T) {
	s := NewMemStore()
	a := s.Add("a", "")
	b := s.Add("b", "")
	if a.ID == b.ID {
		t.Errorf("two projects share id %d", a.ID)
	}
}
