package pageintel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/1genadam/tileshop-rag-sub001/dbopen"
	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/store"
)

// stubFetcher serves canned section bundles per URL.
type stubFetcher struct {
	pages map[string]map[string]string // url -> section name -> html
}

func (f *stubFetcher) FetchSections(_ context.Context, url string) (*pagefetch.Bundle, error) {
	if url == "https://blocked.example/x" {
		return nil, errors.New("URL blocked")
	}
	b := pagefetch.NewBundle(url)
	sections, ok := f.pages[url]
	if !ok {
		// Total fetch failure: every section fails, bundle survives.
		for _, name := range []string{"main", "specifications", "resources"} {
			b.Sections[name] = pagefetch.Section{Name: name, Err: "http 410"}
		}
		return b, nil
	}
	for name, html := range sections {
		b.Sections[name] = pagefetch.Section{Name: name, HTML: html, OK: true}
	}
	return b, nil
}

func newTestService(t *testing.T, fetcher pagefetch.Adapter, docsURL string) *Service {
	t.Helper()

	// Reference data pointing document templates at the test server so
	// resource verification stays local.
	dir := t.TempDir()
	resources := fmt.Sprintf(`
version: "test"
resources:
  tile:
    - type: safety_data_sheet
      title: Safety Data Sheet
      url_template: %s/sds/{sku}.pdf
      requires_field: material
      requires_any_of: [marble, travertine]
  grout: []
  trim_molding: []
  luxury_vinyl: []
`, docsURL)
	if err := os.WriteFile(filepath.Join(dir, "resources.yaml"), []byte(resources), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, err := New(
		&Config{RefDataDir: dir},
		nil,
		WithDB(dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))),
		WithFetcher(fetcher),
		WithResourceValidator(func(string) error { return nil }),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func docsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sds/650041.pdf" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const tileMain = `<div>
<script type="application/ld+json">
{"@type":"Product","name":"Hampton Carrara Polished Marble Tile",
 "sku":"650041","material":"Marble",
 "offers":{"@type":"Offer","price":"287.04","priceCurrency":"USD"}}
</script>
<h1>Hampton Carrara Polished Marble Tile</h1>
<p>Marble field tile. 10.98 sq. ft. per Box. $26.14 per sq. ft.</p>
</div>`

const groutMain = `<div>
<h1>Arizona Grey Sanded Grout</h1>
<p>Sanded grout for narrow joints. 25 lb bag. $18.49 per bag.</p>
<table><tr><th>Color</th><td>Grey</td></tr></table>
</div>`

func TestExtract_TilePage(t *testing.T) {
	docs := docsServer(t)
	svc := newTestService(t, &stubFetcher{pages: map[string]map[string]string{
		"https://example.com/p/650041": {"main": tileMain},
	}}, docs.URL)

	rec, rep, err := svc.Extract(context.Background(), "https://example.com/p/650041")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Family != FamilyTile {
		t.Fatalf("family = %s", rec.Family)
	}
	if rec.PricePerBox == nil || *rec.PricePerBox != 287.04 {
		t.Fatalf("price_per_box = %v", rec.PricePerBox)
	}
	if rec.Coverage == nil || *rec.Coverage != 10.98 {
		t.Fatalf("coverage = %v", rec.Coverage)
	}
	if rec.SKU != "650041" || rec.Incomplete {
		t.Fatalf("rec = %+v", rec)
	}
	// Material qualifies as natural stone and the document exists, so the
	// verified safety sheet is attached.
	if len(rec.Resources) != 1 || !rec.Resources[0].Verified {
		t.Fatalf("resources = %+v", rec.Resources)
	}
	if len(rep.Unresolved) != 0 {
		t.Fatalf("unresolved = %v", rep.Unresolved)
	}

	// The record is persisted and readable by SKU and URL.
	bySKU, err := svc.RecordBySKU(context.Background(), "650041")
	if err != nil || bySKU.URL != rec.URL {
		t.Fatalf("by sku: %v %+v", err, bySKU)
	}
}

func TestExtract_GroutPage(t *testing.T) {
	docs := docsServer(t)
	svc := newTestService(t, &stubFetcher{pages: map[string]map[string]string{
		"https://example.com/p/grout": {"main": groutMain},
	}}, docs.URL)

	rec, _, err := svc.Extract(context.Background(), "https://example.com/p/grout")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Family != FamilyGrout {
		t.Fatalf("family = %s", rec.Family)
	}
	// Color lands in the open side-map under its canonical name; no
	// coverage field exists for weighted goods.
	if rec.Open["color"].Value != "Grey" {
		t.Fatalf("open = %+v", rec.Open)
	}
	if rec.Coverage != nil {
		t.Fatalf("coverage = %v", *rec.Coverage)
	}
}

func TestExtract_TotalFetchFailure(t *testing.T) {
	docs := docsServer(t)
	svc := newTestService(t, &stubFetcher{}, docs.URL)

	rec, rep, err := svc.Extract(context.Background(), "https://example.com/p/gone")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Family != FamilyUnknown || !rec.Incomplete {
		t.Fatalf("rec = %+v", rec)
	}
	if len(rep.Unresolved) == 0 {
		t.Fatal("expected unresolved mandatory fields")
	}
	if len(rep.SectionErrors) != 3 {
		t.Fatalf("section errors = %v", rep.SectionErrors)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	docs := docsServer(t)
	svc := newTestService(t, &stubFetcher{pages: map[string]map[string]string{
		"https://example.com/p/650041": {"main": tileMain},
	}}, docs.URL)

	recA, _, err := svc.Extract(context.Background(), "https://example.com/p/650041")
	if err != nil {
		t.Fatal(err)
	}
	recB, _, err := svc.Extract(context.Background(), "https://example.com/p/650041")
	if err != nil {
		t.Fatal(err)
	}

	a, _ := recA.Marshal()
	b, _ := recB.Marshal()
	if !bytes.Equal(a, b) {
		t.Fatalf("re-extraction not byte-identical:\n%s\n%s", a, b)
	}

	// Replace-by-URL: still exactly one record.
	all, err := svc.Records(context.Background(), "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("records = %d, want 1", len(all))
	}
	// Both runs are logged.
	runs, err := svc.Runs(context.Background(), "https://example.com/p/650041", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
}

func TestExtract_BlockedURLIsAnError(t *testing.T) {
	docs := docsServer(t)
	svc := newTestService(t, &stubFetcher{}, docs.URL)
	if _, _, err := svc.Extract(context.Background(), "https://blocked.example/x"); err == nil {
		t.Fatal("expected error for blocked URL")
	}
}

func TestExtractAll_KeepsInputOrder(t *testing.T) {
	docs := docsServer(t)
	svc := newTestService(t, &stubFetcher{pages: map[string]map[string]string{
		"https://example.com/p/650041": {"main": tileMain},
		"https://example.com/p/grout":  {"main": groutMain},
	}}, docs.URL)

	urls := []string{
		"https://example.com/p/650041",
		"https://blocked.example/x",
		"https://example.com/p/grout",
	}
	results := svc.ExtractAll(context.Background(), urls)
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Record == nil || results[0].Record.Family != FamilyTile {
		t.Fatalf("results[0] = %+v", results[0])
	}
	if results[1].Err == "" {
		t.Fatal("blocked URL should carry an error")
	}
	if results[2].Record == nil || results[2].Record.Family != FamilyGrout {
		t.Fatalf("results[2] = %+v", results[2])
	}
}
