// Command pageintel runs the product page extraction pipeline.
//
// Usage:
//
//	pageintel -url https://www.tileshop.com/product/...   # one-shot extract
//	pageintel -urls pages.txt                             # batch extract
//	pageintel -serve                                      # HTTP API (+ optional MCP over QUIC)
//	pageintel -stats                                      # catalog coverage summary
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/1genadam/tileshop-rag-sub001/dbopen"
	"github.com/1genadam/tileshop-rag-sub001/mcpquic"
	"github.com/1genadam/tileshop-rag-sub001/observability"
	"github.com/1genadam/tileshop-rag-sub001/pageintel"
)

func main() {
	configPath := flag.String("config", "", "path to pageintel.yaml config file")
	dbPath := flag.String("db", "", "override database path")
	singleURL := flag.String("url", "", "extract a single product page and print the record")
	urlsFile := flag.String("urls", "", "extract all URLs listed in a file (one per line)")
	serve := flag.Bool("serve", false, "run the HTTP API server")
	stats := flag.Bool("stats", false, "print catalog coverage stats and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *singleURL, *urlsFile, *serve, *stats); err != nil {
		logger.Error("pageintel: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, singleURL, urlsFile string, serve, stats bool) error {
	cfg, err := pageintel.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	svc, err := pageintel.New(cfg, logger, serviceOptions(ctx, cfg, logger, serve)...)
	if err != nil {
		return err
	}
	defer svc.Close()

	switch {
	case singleURL != "":
		return runSingle(ctx, svc, singleURL)
	case urlsFile != "":
		return runBatch(ctx, svc, urlsFile)
	case stats:
		return runStats(ctx, svc)
	case serve:
		return runServe(ctx, logger, cfg, svc)
	}

	fmt.Fprintln(os.Stderr, "usage: pageintel -url <url> | -urls <file> | -serve | -stats")
	os.Exit(1)
	return nil
}

// serviceOptions wires the observability stores in serve mode. One-shot
// invocations skip them: a single run's telemetry is the printed report.
func serviceOptions(ctx context.Context, cfg *pageintel.Config, logger *slog.Logger, serve bool) []pageintel.Option {
	if !serve {
		return nil
	}
	obsPath := env("OBS_DB", filepath.Join(filepath.Dir(cfg.DBPath), "observability.db"))
	obsDB, err := dbopen.Open(obsPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		logger.Warn("observability db unavailable, telemetry disabled", "path", obsPath, "error", err)
		return nil
	}
	metrics := observability.NewMetricsManager(obsDB, 100, 5*time.Second)
	events := observability.NewEventLogger(obsDB)

	heartbeat := observability.NewHeartbeatWriter(obsDB, "pageintel", 30*time.Second)
	go heartbeat.Run(ctx)

	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Flush buffered metrics before the DB goes away.
				metrics.Close()
				obsDB.Close()
				return
			case <-ticker.C:
				err := observability.Cleanup(ctx, obsDB, observability.RetentionConfig{
					EventsDays:     30,
					MetricsDays:    14,
					HeartbeatsDays: 7,
				})
				if err != nil {
					logger.Warn("observability cleanup", "error", err)
				}
			}
		}
	}()

	return []pageintel.Option{pageintel.WithObservability(metrics, events)}
}

func runSingle(ctx context.Context, svc *pageintel.Service, url string) error {
	rec, rep, err := svc.Extract(ctx, url)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(map[string]any{"record": rec, "report": rep}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runBatch(ctx context.Context, svc *pageintel.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	results := svc.ExtractAll(ctx, urls)
	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, res := range results {
		if res.Err != "" {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d urls failed", failed, len(urls))
	}
	return nil
}

func runStats(ctx context.Context, svc *pageintel.Service) error {
	st, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *pageintel.Config, svc *pageintel.Service) error {
	if cfg.WatchRefData {
		go func() {
			if err := svc.RefData().Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Error("refdata watch", "error", err)
			}
		}()
	}

	// Prune the run log once a day.
	if cfg.RunRetention > 0 {
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n, err := svc.PruneRuns(ctx); err != nil {
						logger.Warn("prune runs", "error", err)
					} else if n > 0 {
						logger.Info("pruned runs", "count", n)
					}
				}
			}
		}()
	}

	// Optional MCP over QUIC.
	if quicAddr := env("MCP_QUIC_ADDR", ""); quicAddr != "" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "pageintel",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)

		certFile := env("TLS_CERT", "")
		keyFile := env("TLS_KEY", "")
		var (
			tlsCfg *tls.Config
			err    error
		)
		if certFile != "" && keyFile != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(certFile, keyFile)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			logger.Error("MCP QUIC TLS", "error", err)
		} else {
			ql, qErr := mcpquic.NewListener(quicAddr, tlsCfg, mcpSrv, logger)
			if qErr != nil {
				logger.Error("MCP QUIC listener", "error", qErr)
			} else {
				go func() {
					logger.Info("MCP QUIC starting", "addr", quicAddr)
					if sErr := ql.Serve(ctx); sErr != nil && ctx.Err() == nil {
						logger.Error("MCP QUIC", "error", sErr)
					}
				}()
				defer ql.Close()
			}
		}
	}

	r := chi.NewRouter()
	svc.RegisterHTTP(r)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
