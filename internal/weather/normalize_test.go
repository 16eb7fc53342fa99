package weather

import (
	"sync"
	"testing"
)

func TestNormalizeCity(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"   ":            "",
		"paris":          "Paris",
		"  LONDON ":      "London",
		"new york":       "New York",
		"NEW YORK":       "New York",
		"rio de janeiro": "Rio de Janeiro",
		"los angeles":    "Los Angeles",
		"buenos aires":   "Buenos Aires",
		"são paulo":      "São Paulo",
	}
	for in, want := range tests {
		if got := NormalizeCity(in); got != want {
			t.Errorf("NormalizeCity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCityConcurrent(t *testing.T) {
	const in = "sÃo paulo de la sierra"
	want := NormalizeCity(in)
	if want != "São Paulo De La Sierra" {
		t.Fatalf("NormalizeCity(%q) = %q", in, want)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := NormalizeCity(in); got != want {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("NormalizeCity returned %q under concurrent use", got)
	}
}

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"New York":         "New_York",
		"São Paulo":        "Sao_Paulo",
		"../../etc/passwd": "etc_passwd",
		"Zürich":           "Zurich",
	}
	for in, want := range tests {
		if got := SecureFilename(in); got != want {
			t.Errorf("SecureFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
