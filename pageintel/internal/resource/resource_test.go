package resource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/refdata"
)

func allowAll(string) error { return nil }

func newTestResolver(timeout time.Duration) *Resolver {
	return New(Config{Timeout: timeout, URLValidator: allowAll})
}

func TestResolve_OnlyVerifiedLinksAttach(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/docs/sds/650041.pdf" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	rules := []refdata.ResourceRule{
		{Type: "safety_data_sheet", Title: "Safety Data Sheet", URLTemplate: srv.URL + "/docs/sds/{sku}.pdf"},
		{Type: "data_sheet", Title: "Technical Data Sheet", URLTemplate: srv.URL + "/docs/tds/{sku}.pdf"},
	}
	links := newTestResolver(time.Second).Resolve(context.Background(), rules, "650041", nil)

	if len(links) != 1 {
		t.Fatalf("links = %+v, want exactly the verified one", links)
	}
	if links[0].Type != "safety_data_sheet" || !links[0].Verified {
		t.Fatalf("link = %+v", links[0])
	}
}

func TestResolve_FieldGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rules := []refdata.ResourceRule{{
		Type:          "safety_data_sheet",
		Title:         "Safety Data Sheet",
		URLTemplate:   srv.URL + "/sds/{sku}.pdf",
		RequiresField: "material",
		RequiresAnyOf: []string{"marble", "travertine"},
	}}
	r := newTestResolver(time.Second)

	if got := r.Resolve(context.Background(), rules, "1", map[string]string{"material": "ceramic"}); len(got) != 0 {
		t.Fatalf("ceramic should not qualify: %+v", got)
	}
	if got := r.Resolve(context.Background(), rules, "1", map[string]string{"material": "Marble"}); len(got) != 1 {
		t.Fatalf("marble should qualify: %+v", got)
	}
	if got := r.Resolve(context.Background(), rules, "1", nil); len(got) != 0 {
		t.Fatalf("missing gate field should not qualify: %+v", got)
	}
}

func TestResolve_MissingSKUSkipsTemplate(t *testing.T) {
	rules := []refdata.ResourceRule{
		{Type: "data_sheet", Title: "TDS", URLTemplate: "https://example.com/tds/{sku}.pdf"},
	}
	if got := newTestResolver(time.Second).Resolve(context.Background(), rules, "", nil); len(got) != 0 {
		t.Fatalf("links = %+v", got)
	}
}

func TestResolve_TimeoutOmitsLinkWithoutFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	rules := []refdata.ResourceRule{
		{Type: "data_sheet", Title: "TDS", URLTemplate: srv.URL + "/{sku}.pdf"},
	}
	links := newTestResolver(50 * time.Millisecond).Resolve(context.Background(), rules, "1", nil)
	if len(links) != 0 {
		t.Fatalf("links = %+v, want none on timeout", links)
	}
}

func TestResolve_HeadFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rules := []refdata.ResourceRule{
		{Type: "sell_sheet", Title: "Sell Sheet", URLTemplate: srv.URL + "/{sku}.pdf"},
	}
	links := newTestResolver(time.Second).Resolve(context.Background(), rules, "1", nil)
	if len(links) != 1 {
		t.Fatalf("links = %+v", links)
	}
}
