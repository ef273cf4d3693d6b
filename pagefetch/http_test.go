package pagefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func allowAll(string) error { return nil }

const productPage = `<html><head><title>Test Product</title></head><body>
<main><h1>Arizona Grey Grout</h1><p>25 lb bag. $18.49 each.</p></main>
<div id="specifications"><table><tr><th>Color</th><td>Grey</td></tr></table></div>
</body></html>`

func TestFetchSections_SlicedFromBasePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{URLValidator: allowAll})
	bundle, err := f.FetchSections(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	main, ok := bundle.Get("main")
	if !ok {
		t.Fatal("main section not fetched")
	}
	if !strings.Contains(main.Text, "Arizona Grey Grout") {
		t.Fatalf("main text = %q", main.Text)
	}

	specs, ok := bundle.Get("specifications")
	if !ok {
		t.Fatal("specifications section not fetched")
	}
	if !strings.Contains(specs.Text, "Grey") {
		t.Fatalf("specs text = %q", specs.Text)
	}

	// No resources container on the page: section fails independently.
	if _, ok := bundle.Get("resources"); ok {
		t.Fatal("resources should have failed")
	}
	if bundle.OKCount() != 2 {
		t.Fatalf("OKCount = %d, want 2", bundle.OKCount())
	}
}

func TestFetchSections_RemoteEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/specs") {
			w.Write([]byte(`<html><body><dl><dt>Finish</dt><dd>Matte</dd></dl></body></html>`))
			return
		}
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{
		URLValidator: allowAll,
		Sections: map[string]SectionSpec{
			"main":           {Selector: "main"},
			"specifications": {URLSuffix: "/specs"},
		},
	})
	bundle, err := f.FetchSections(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	specs, ok := bundle.Get("specifications")
	if !ok {
		t.Fatal("remote section not fetched")
	}
	if !strings.Contains(specs.Text, "Matte") {
		t.Fatalf("specs text = %q", specs.Text)
	}
}

func TestFetchSections_TotalFailureStillReturnsBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{URLValidator: allowAll})
	bundle, err := f.FetchSections(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if bundle.OKCount() != 0 {
		t.Fatalf("OKCount = %d, want 0", bundle.OKCount())
	}
	// Every configured section carries its failure reason.
	for _, name := range bundle.Names() {
		if bundle.Sections[name].Err == "" {
			t.Fatalf("section %s missing failure reason", name)
		}
	}
}

func TestFetchSections_BlockedURL(t *testing.T) {
	f := NewHTTPFetcher(Config{})
	if _, err := f.FetchSections(context.Background(), "http://127.0.0.1/x"); err == nil {
		t.Fatal("expected error for loopback URL with default validator")
	}
}
