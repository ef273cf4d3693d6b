package pagefetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/safeurl"
	"github.com/1genadam/tileshop-rag-sub001/sectiontext"
)

// SectionSpec describes how one named section is obtained.
type SectionSpec struct {
	// Selector slices the section out of the base page (CSS subset,
	// comma alternatives). Empty selector means the whole page.
	Selector string `yaml:"selector"`

	// URLSuffix, when set, fetches the section from its own endpoint
	// (base URL + suffix) instead of slicing the base page.
	URLSuffix string `yaml:"url_suffix"`
}

// Config configures the HTTP section fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 10MB.
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: safeurl.Validate.
	URLValidator func(string) error
	// Sections maps section name to its spec. Default: main / specifications /
	// resources sliced from the base page.
	Sections map[string]SectionSpec
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "tileshop-pageintel/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = safeurl.Validate
	}
	if len(c.Sections) == 0 {
		c.Sections = DefaultSections()
	}
}

// DefaultSections returns the standard three-section layout of a catalog
// product page.
func DefaultSections() map[string]SectionSpec {
	return map[string]SectionSpec{
		"main":           {Selector: "main, article, #main-content, body"},
		"specifications": {Selector: "#specifications, .product-specs, .specifications"},
		"resources":      {Selector: "#resources, .product-resources, .resources"},
	}
}

// HTTPFetcher fetches section bundles over plain HTTP. The base page is
// fetched once; sections with their own endpoint are fetched concurrently.
type HTTPFetcher struct {
	client *http.Client
	config Config
}

// NewHTTPFetcher creates an HTTPFetcher with SSRF protection on redirects.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// FetchSections retrieves the configured sections for url. Section failures
// are recorded per section; only a disallowed URL is an error.
func (f *HTTPFetcher) FetchSections(ctx context.Context, url string) (*Bundle, error) {
	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("pagefetch: URL blocked: %w", err)
	}

	bundle := NewBundle(url)

	// Split specs into page-sliced and endpoint-backed sections.
	var sliced, remote []string
	for name, spec := range f.config.Sections {
		if spec.URLSuffix != "" {
			remote = append(remote, name)
		} else {
			sliced = append(sliced, name)
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	// Base page feeds all sliced sections.
	wg.Add(1)
	go func() {
		defer wg.Done()
		body, err := f.get(ctx, url)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			for _, name := range sliced {
				bundle.Sections[name] = Section{Name: name, Err: err.Error()}
			}
			return
		}
		doc, err := sectiontext.Parse(string(body))
		if err != nil {
			for _, name := range sliced {
				bundle.Sections[name] = Section{Name: name, Err: err.Error()}
			}
			return
		}
		for _, name := range sliced {
			spec := f.config.Sections[name]
			if spec.Selector == "" {
				bundle.Sections[name] = Section{
					Name: name, HTML: string(body),
					Text: sectiontext.CleanText(doc), OK: true,
				}
				continue
			}
			node := sectiontext.QueryOne(doc, spec.Selector)
			if node == nil {
				bundle.Sections[name] = Section{Name: name, Err: "no element matched selector"}
				continue
			}
			bundle.Sections[name] = Section{
				Name: name,
				HTML: sectiontext.Render(node),
				Text: sectiontext.Text(node),
				OK:   true,
			}
		}
	}()

	// Endpoint-backed sections fetch independently.
	for _, name := range remote {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			spec := f.config.Sections[name]
			body, err := f.get(ctx, url+spec.URLSuffix)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				bundle.Sections[name] = Section{Name: name, Err: err.Error()}
				return
			}
			text := ""
			if doc, perr := sectiontext.Parse(string(body)); perr == nil {
				text = sectiontext.CleanText(doc)
			}
			bundle.Sections[name] = Section{Name: name, HTML: string(body), Text: text, OK: true}
		}(name)
	}

	wg.Wait()
	return bundle, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := safeurl.LimitedReadAll(resp.Body, f.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
