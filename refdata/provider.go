package refdata

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Provider holds the current reference data snapshot and reloads it when
// the underlying files change. Reads are lock-cheap; a failed reload keeps
// the previous snapshot.
type Provider struct {
	dir    string
	logger *slog.Logger

	mu   sync.RWMutex
	data *Data
}

// NewProvider loads the reference data from dir. An empty dir serves the
// built-in defaults and disables watching.
func NewProvider(dir string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{dir: dir, logger: logger}
	if dir == "" {
		p.data = Default()
		return p, nil
	}
	d, err := Load(dir)
	if err != nil {
		return nil, err
	}
	p.data = d
	return p, nil
}

// Data returns the current snapshot. Callers must not mutate it.
func (p *Provider) Data() *Data {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data
}

// Version returns the version string of the current snapshot.
func (p *Provider) Version() string {
	return p.Data().Version
}

// Reload re-reads the files. On error the previous snapshot stays active.
func (p *Provider) Reload() error {
	if p.dir == "" {
		return nil
	}
	d, err := Load(p.dir)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.data = d
	p.mu.Unlock()
	p.logger.Info("refdata: reloaded", "version", d.Version, "aliases", len(d.Aliases))
	return nil
}

// Watch blocks until ctx is done, reloading on file changes in the
// reference directory. Events are debounced, editors tend to emit several
// writes per save.
func (p *Provider) Watch(ctx context.Context) error {
	if p.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(p.dir); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if ext := filepath.Ext(ev.Name); ext != ".yaml" && ext != ".yml" {
				continue
			}
			pending = time.After(250 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("refdata: watcher error", "error", err)
		case <-pending:
			pending = nil
			if err := p.Reload(); err != nil {
				p.logger.Error("refdata: reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
