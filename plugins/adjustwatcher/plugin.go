// Package adjustwatcher reloads the field adjustment table when the
// configuration file changes. Other settings still require a restart.
package adjustwatcher

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ellieayla/logstash-output-loginsight/internal/cliconfig"
	"github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"
	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
	"github.com/ellieayla/logstash-output-loginsight/pkg/loginsight"
)

// adjuster is the part of *loginsight.Forwarder the plugin drives.
type adjuster interface {
	SetAdjustments(map[string]string)
	Adjustments() map[string]string
}

// Plugin watches a TOML config file and applies its adjusted_fields table.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	logger   log.Logger
	target   adjuster
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  int
}

// Config holds configuration options for the watcher.
type Config struct {
	// Path is the config file to watch. The plugin is a no-op when empty.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// New creates a watcher plugin.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "adjustwatcher"
}

// Initialize starts watching the file's directory.
func (p *Plugin) Initialize(ctx context.Context, cfg loginsight.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	if p.path == "" || cfg.Forwarder == nil {
		p.logger.Warn("adjustment watcher disabled: no config file")
		return nil
	}
	p.target = cfg.Forwarder

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace files by rename, so watch the directory
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.watchLoop(p.ctx, watcher)

	p.logger.Info("watching config file for adjustment changes", log.String("path", p.path))
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Reloads returns how many times a changed table was applied.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("adjustment watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the file's table. A file without the table restores the
// defaults; an unreadable file leaves the current table in place.
func (p *Plugin) reload() {
	fields, err := cliconfig.LoadAdjustments(p.path)
	if err != nil {
		p.logger.Warn("keeping current adjustments, config file unreadable",
			log.String("path", p.path),
			log.Err(err))
		return
	}
	if fields == nil {
		fields = cfapi.DefaultAdjustments().Map()
	}
	if reflect.DeepEqual(fields, p.target.Adjustments()) {
		return
	}

	p.target.SetAdjustments(fields)

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
}

// Ensure Plugin implements loginsight.Plugin.
var _ loginsight.Plugin = (*Plugin)(nil)
