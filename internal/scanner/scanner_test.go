package scanner

import (
	"context"
	"testing"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) (Result, error) { return Result{}, nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedScanner("generic"))
	reg.Register(namedScanner("rss"))

	got, err := reg.Resolve("rss")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Name() != "rss" {
		t.Fatalf("unexpected scanner: %s", got.Name())
	}

	if _, err := reg.Resolve("custom"); err == nil {
		t.Fatalf("expected error for unregistered scanner")
	}

	var zero Registry
	zero.Register(namedScanner("custom"))
	if _, err := zero.Resolve("custom"); err != nil {
		t.Fatalf("zero registry should accept registrations: %v", err)
	}
}
