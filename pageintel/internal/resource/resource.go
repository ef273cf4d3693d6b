// Package resource predicts and verifies auxiliary document links (safety
// sheets, data sheets, installation guides) for a resolved family.
//
// Candidate URLs come only from the deterministic family→document mapping
// in the reference data; the resolver never invents a URL beyond expanding
// the template. A lightweight existence check gates attachment: unverified
// candidates are dropped silently and logged at debug level.
package resource

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/refdata"
	"github.com/1genadam/tileshop-rag-sub001/safeurl"
)

// Config configures the resolver.
type Config struct {
	// Timeout bounds each existence check. The check must never stall a
	// run: on timeout the candidate is simply omitted. Default: 10s.
	Timeout time.Duration

	UserAgent string

	// DeepVerifyPDF downloads candidate PDFs (bounded by MaxPDFBytes) and
	// validates their structure instead of trusting the status code.
	DeepVerifyPDF bool
	MaxPDFBytes   int64 // default 2MB

	// URLValidator guards expanded candidate URLs. Default: safeurl.Validate.
	URLValidator func(string) error

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "tileshop-pageintel/1.0"
	}
	if c.MaxPDFBytes <= 0 {
		c.MaxPDFBytes = 2 * 1024 * 1024
	}
	if c.URLValidator == nil {
		c.URLValidator = safeurl.Validate
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver verifies candidate document links.
type Resolver struct {
	cfg    Config
	client *http.Client
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	cfg.defaults()
	return &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Resolve expands the family's document rules against the record's SKU and
// canonical field values, verifies each candidate, and returns only the
// links whose existence check succeeded, in rule order.
func (r *Resolver) Resolve(ctx context.Context, rules []refdata.ResourceRule, sku string, fields map[string]string) []record.ResourceLink {
	var links []record.ResourceLink
	for _, rule := range rules {
		if !r.eligible(rule, fields) {
			continue
		}
		if strings.Contains(rule.URLTemplate, "{sku}") && sku == "" {
			r.cfg.Logger.Debug("resource: no sku for template", "type", rule.Type)
			continue
		}
		url := strings.ReplaceAll(rule.URLTemplate, "{sku}", sku)
		if err := r.cfg.URLValidator(url); err != nil {
			r.cfg.Logger.Debug("resource: candidate blocked", "url", url, "error", err)
			continue
		}
		if err := r.verify(ctx, url); err != nil {
			r.cfg.Logger.Debug("resource: candidate unverified", "url", url, "error", err)
			continue
		}
		links = append(links, record.ResourceLink{
			Type:     rule.Type,
			Title:    rule.Title,
			URL:      url,
			Verified: true,
		})
	}
	return links
}

// eligible applies the rule's field gate, e.g. safety sheets only for
// natural-stone materials.
func (r *Resolver) eligible(rule refdata.ResourceRule, fields map[string]string) bool {
	if rule.RequiresField == "" {
		return true
	}
	val := strings.ToLower(fields[rule.RequiresField])
	if val == "" {
		return false
	}
	if len(rule.RequiresAnyOf) == 0 {
		return true
	}
	for _, want := range rule.RequiresAnyOf {
		if strings.Contains(val, strings.ToLower(want)) {
			return true
		}
	}
	return false
}

// verify performs the existence check: HEAD first, GET on servers that
// reject HEAD, optionally followed by structural PDF validation.
func (r *Resolver) verify(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	status, err := r.request(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = r.request(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("http %d", status)
	}

	if r.cfg.DeepVerifyPDF && strings.HasSuffix(strings.ToLower(url), ".pdf") {
		return r.validatePDF(ctx, url)
	}
	return nil
}

func (r *Resolver) request(ctx context.Context, method, url string, body *[]byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if body != nil {
		*body, err = safeurl.LimitedReadAll(resp.Body, r.cfg.MaxPDFBytes)
		if err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// validatePDF downloads the document (bounded) and checks it parses as a
// structurally valid PDF.
func (r *Resolver) validatePDF(ctx context.Context, url string) error {
	var body []byte
	status, err := r.request(ctx, http.MethodGet, url, &body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("http %d", status)
	}
	if _, err := api.ReadValidateAndOptimize(bytes.NewReader(body), model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("pdf validate: %w", err)
	}
	return nil
}
