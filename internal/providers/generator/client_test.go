package generator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dogemint/internal/domain"
)

func TestSyntheticGenerationIsDeterministic(t *testing.T) {
	client := NewClient(Options{
		Collection:     "dogemint",
		ContentBaseURL: "https://content.test",
	})

	first, err := client.Generate(context.Background(), 42, "DWalletAaaa")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	second, err := client.Generate(context.Background(), 42, "DWalletAaaa")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if first.Rarity != second.Rarity {
		t.Fatalf("rarity differs between runs: %s vs %s", first.Rarity, second.Rarity)
	}
	if len(first.Traits) != len(second.Traits) {
		t.Fatalf("trait count differs: %d vs %d", len(first.Traits), len(second.Traits))
	}
	for i := range first.Traits {
		if first.Traits[i] != second.Traits[i] {
			t.Fatalf("trait %d differs: %+v vs %+v", i, first.Traits[i], second.Traits[i])
		}
	}
	if first.ContentRef != "https://content.test/dogemint/42.png" {
		t.Fatalf("content ref = %q", first.ContentRef)
	}
}

func TestSyntheticGenerationVariesByToken(t *testing.T) {
	client := NewClient(Options{Collection: "dogemint", ContentBaseURL: "https://content.test"})

	a, _ := client.Generate(context.Background(), 1, "DWalletAaaa")
	b, _ := client.Generate(context.Background(), 2, "DWalletAaaa")

	if a.ContentRef == b.ContentRef {
		t.Fatal("different tokens produced the same content ref")
	}
}

func TestRemoteGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("path = %q, want /generate", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rarity":"rare","traits":[{"type":"base","value":"space shibe"}],"content_ref":"https://cdn.test/7.png","prompt":"a space shibe"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "key-123", BaseURL: srv.URL})
	got, err := client.Generate(context.Background(), 7, "DWalletAaaa")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got.Rarity != domain.RarityRare {
		t.Fatalf("rarity = %s, want rare", got.Rarity)
	}
	if got.ContentRef != "https://cdn.test/7.png" {
		t.Fatalf("content ref = %q", got.ContentRef)
	}
}

func TestRemoteGenerationBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "key-123", BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), 7, "DWalletAaaa")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("error = %v, want ErrProviderFailure", err)
	}
}

func TestRemoteGenerationMalformedOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rarity":"rare","traits":[],"content_ref":""}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: "key-123", BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), 7, "DWalletAaaa")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("error = %v, want ErrProviderFailure", err)
	}
}
