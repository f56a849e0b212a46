package tts

import (
	"context"
	"testing"
)

func TestRegistrySynthesizeUnknownResource(t *testing.T) {
	r := NewRegistry()
	_, err := r.Synthesize(context.Background(), "not-a-provider", "1", "hello")
	if err == nil {
		t.Fatal("expected error for unrecognized resource")
	}
}

func TestRegistryCloseWithNoProvidersConstructed(t *testing.T) {
	r := NewRegistry()
	if err := r.Close(); err != nil {
		t.Fatalf("close on empty registry: %v", err)
	}
}

func TestRegistryConfigureBeforeUse(t *testing.T) {
	r := NewRegistry()
	r.Configure("gemini", ProviderConfig{Model: "gemini-2.5-flash-tts"})

	p, err := r.provider("gemini")
	if err != nil {
		t.Fatalf("construct gemini provider: %v", err)
	}
	if p.Name() != "gemini" {
		t.Fatalf("expected gemini provider, got %q", p.Name())
	}

	// A second call must reuse the pooled instance rather than
	// reconstructing it.
	p2, err := r.provider("gemini")
	if err != nil {
		t.Fatalf("construct gemini provider again: %v", err)
	}
	if p != p2 {
		t.Fatal("expected pooled provider instance to be reused")
	}
}
