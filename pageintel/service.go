package pageintel

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/dbopen"
	"github.com/1genadam/tileshop-rag-sub001/idgen"
	"github.com/1genadam/tileshop-rag-sub001/observability"
	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pagefetch/browser"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/assemble"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/classify"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/normalize"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/parser"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/resource"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/schemax"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/store"
	"github.com/1genadam/tileshop-rag-sub001/refdata"
)

// Service is the pipeline orchestrator. Runs are independent; the only
// shared mutable state is the append-only canonical-name registry.
type Service struct {
	fetcher  pagefetch.Adapter
	store    *store.Store
	refdata  *refdata.Provider
	registry *schemax.Registry
	resolver *resource.Resolver
	renderer *renderer
	logger   *slog.Logger
	config   *Config
	newID    func() string

	metrics *observability.MetricsManager
	events  *observability.EventLogger

	resourceValidator func(string) error
}

// Option customizes service construction.
type Option func(*Service)

// WithFetcher replaces the section fetcher (tests, alternate transports).
func WithFetcher(f pagefetch.Adapter) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithDB uses an already-opened database instead of Config.DBPath.
func WithDB(db *sql.DB) Option {
	return func(s *Service) { s.store = store.New(db) }
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithResourceValidator overrides URL validation on resource existence
// checks (tests pointing document templates at local servers).
func WithResourceValidator(v func(string) error) Option {
	return func(s *Service) { s.resourceValidator = v }
}

// WithObservability attaches a metrics manager and event logger. Both are
// optional and may be nil; the pipeline never blocks on them.
func WithObservability(mm *observability.MetricsManager, el *observability.EventLogger) Option {
	return func(s *Service) {
		s.metrics = mm
		s.events = el
	}
}

// New creates the pipeline service: opens the database, loads the
// reference data, and seeds the canonical-name registry.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		logger:   logger,
		config:   cfg,
		renderer: newRenderer(),
		newID:    idgen.Prefixed("run_", idgen.UUIDv7()),
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.store == nil {
		db, err := dbopen.Open(cfg.DBPath,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(store.Schema),
		)
		if err != nil {
			return nil, fmt.Errorf("pageintel: open db: %w", err)
		}
		svc.store = store.New(db)
	}

	provider, err := refdata.NewProvider(cfg.RefDataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("pageintel: reference data: %w", err)
	}
	svc.refdata = provider

	registry, err := schemax.NewRegistry(context.Background(), svc.store)
	if err != nil {
		return nil, err
	}
	svc.registry = registry

	svc.resolver = resource.New(resource.Config{
		Timeout:       cfg.ResourceTimeout,
		UserAgent:     cfg.UserAgent,
		DeepVerifyPDF: cfg.DeepVerifyPDF,
		URLValidator:  svc.resourceValidator,
		Logger:        logger,
	})

	if svc.fetcher == nil {
		svc.fetcher = newFetcher(cfg, logger)
	}
	return svc, nil
}

func newFetcher(cfg *Config, logger *slog.Logger) pagefetch.Adapter {
	if cfg.BrowserRemoteURL != "" {
		remote := cfg.BrowserRemoteURL
		if remote == "local" {
			remote = ""
		}
		sections := make(map[string]string)
		for name, spec := range cfg.Sections {
			if spec.Selector != "" {
				sections[name] = spec.Selector
			}
		}
		return browser.New(browser.Config{
			RemoteURL:  remote,
			NavTimeout: cfg.FetchTimeout,
			Sections:   sections,
			Logger:     logger,
		})
	}
	return pagefetch.NewHTTPFetcher(pagefetch.Config{
		Timeout:   cfg.FetchTimeout,
		MaxBytes:  cfg.MaxBytes,
		UserAgent: cfg.UserAgent,
		Sections:  cfg.Sections,
	})
}

// Close releases the fetcher (browser instances) and the database.
func (s *Service) Close() error {
	if c, ok := s.fetcher.(interface{ Close() error }); ok {
		c.Close()
	}
	if s.store != nil && s.store.DB != nil {
		return s.store.DB.Close()
	}
	return nil
}

// RefData exposes the live reference-data provider (reload endpoint,
// watcher wiring).
func (s *Service) RefData() *refdata.Provider { return s.refdata }

// CanonicalNames returns the registered canonical names.
func (s *Service) CanonicalNames() []string { return s.registry.Names() }

// Extract runs the full pipeline for one URL and upserts the result.
//
// It returns an error only for misuse (a disallowed URL) or a storage
// failure on the final upsert; everything in between downgrades into the
// record's incomplete flag and the provenance report.
func (s *Service) Extract(ctx context.Context, url string) (*ProductRecord, *Report, error) {
	start := time.Now()
	data := s.refdata.Data()

	bundle, err := s.fetcher.FetchSections(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	canon := normalize.New(data.Aliases)
	cls := classify.New(data.ConfidenceFloor, data.TieWindow).Classify(bundle)

	obs, unresolved := parser.ForFamily(cls.Family, canon.Canonical).Extract(bundle)
	fields, discarded := canon.Normalize(obs)

	open, conflicts, err := schemax.NewExpander(s.registry).Expand(ctx, fields)
	if err != nil {
		// Registry persistence trouble must not kill the run; the open
		// side-map is simply thinner this time.
		s.logger.Warn("pageintel: schema expansion", "url", url, "error", err)
	}
	for _, c := range conflicts {
		// The one condition an operator has to act on: the registry
		// diverged and needs a reference-data correction.
		s.logger.Error("pageintel: schema conflict", "url", url, "detail", c)
		if s.events != nil {
			s.events.Log(ctx, observability.Event{
				Type:   observability.EventSchemaConflict,
				URL:    url,
				Family: string(cls.Family),
				Detail: c,
			})
		}
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = f.Value
	}
	links := s.resolver.Resolve(ctx, data.Resources[string(cls.Family)], values["sku"], values)

	sectionErrors := make(map[string]string)
	for name, sec := range bundle.Sections {
		if !sec.OK {
			sectionErrors[name] = sec.Err
		}
	}
	if len(sectionErrors) == 0 {
		sectionErrors = nil
	}

	rec, rep := assemble.Assemble(assemble.Input{
		URL:             url,
		Classification:  cls,
		Fields:          fields,
		Open:            open,
		Resources:       links,
		Unresolved:      unresolved,
		Discarded:       discarded,
		SchemaConflicts: conflicts,
		SectionErrors:   sectionErrors,
		Markdown:        s.renderer.mainMarkdown(bundle),
		RefVersion:      data.Version,
	})

	// Nothing has been persisted for this URL yet; an abandoned run has no
	// side effects beyond registry growth.
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := s.store.UpsertRecord(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("pageintel: upsert %s: %w", url, err)
	}
	s.logRun(ctx, rep, time.Since(start))

	if s.metrics != nil {
		s.metrics.Record(&observability.Metric{
			Name:      observability.MetricExtractionDurationMS,
			Timestamp: time.Now(),
			Value:     float64(time.Since(start).Milliseconds()),
			Labels:    map[string]string{"family": string(cls.Family)},
			Unit:      "milliseconds",
		})
		s.metrics.RecordSimple(observability.MetricFieldsResolvedCount, float64(len(fields)), "count")
		s.metrics.RecordSimple(observability.MetricResourcesVerified, float64(len(rec.Resources)), "count")
		if len(conflicts) > 0 {
			s.metrics.RecordSimple(observability.MetricSchemaConflictCount, float64(len(conflicts)), "count")
		}
	}

	s.logger.Info("pageintel: extracted",
		"url", url,
		"family", rec.Family,
		"confidence", cls.Confidence,
		"fields", len(fields),
		"resources", len(rec.Resources),
		"incomplete", rec.Incomplete,
	)
	return rec, rep, nil
}

func (s *Service) logRun(ctx context.Context, rep *Report, elapsed time.Duration) {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		reportJSON = []byte("{}")
	}
	run := &store.Run{
		ID:         s.newID(),
		URL:        rep.URL,
		Family:     string(rep.Family),
		Confidence: rep.Confidence,
		Incomplete: rep.Incomplete,
		ReportJSON: string(reportJSON),
		DurationMS: elapsed.Milliseconds(),
	}
	if err := s.store.InsertRun(ctx, run); err != nil {
		s.logger.Warn("pageintel: run log", "url", rep.URL, "error", err)
	}
}

// RecordByURL fetches a stored record.
func (s *Service) RecordByURL(ctx context.Context, url string) (*ProductRecord, error) {
	return s.store.GetRecordByURL(ctx, url)
}

// RecordBySKU fetches the most recent record for a SKU.
func (s *Service) RecordBySKU(ctx context.Context, sku string) (*ProductRecord, error) {
	return s.store.GetRecordBySKU(ctx, sku)
}

// Records lists stored records, optionally filtered by family.
func (s *Service) Records(ctx context.Context, family Family, limit int) ([]*ProductRecord, error) {
	return s.store.ListRecords(ctx, family, limit)
}

// Runs lists logged pipeline runs, optionally filtered by URL.
func (s *Service) Runs(ctx context.Context, url string, limit int) ([]*Run, error) {
	return s.store.ListRuns(ctx, url, limit)
}

// Stats summarizes catalog coverage.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// PruneRuns removes run log rows beyond the configured retention. No-op
// when retention is unset.
func (s *Service) PruneRuns(ctx context.Context) (int64, error) {
	if s.config.RunRetention <= 0 {
		return 0, nil
	}
	return s.store.PruneRuns(ctx, time.Now().Add(-s.config.RunRetention))
}
