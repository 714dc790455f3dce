package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	appLog "calkit/internal/log"
	"calkit/internal/metrics"
	"calkit/internal/model"
)

// lazyKeyPrefix prefixes keys generated for loaders.
const lazyKeyPrefix = "lazy-"

// Record is one registered plugin.
//
// Invariants: an unloaded record always has a Loader, a loaded record always
// has an Instance. Lazy records keep their Loader after loading.
type Record struct {
	Key      string
	Instance Plugin
	Loader   Loader
	Loaded   bool
	Enabled  bool
}

// Registry maps plugin keys to records and drives their lifecycle.
// It is safe for concurrent use. Loaders and hooks run without the lock held.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
	loading map[string]bool

	loads singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		loading: make(map[string]bool),
	}
}

// Register stores an already realized plugin under its own key, replacing
// any previous record with that key.
func (r *Registry) Register(p Plugin) (string, error) {
	key, ok := keyOf(p)
	if !ok {
		return "", fmt.Errorf("%w: nil plugin", ErrInvalidPlugin)
	}
	if key == "" {
		return "", fmt.Errorf("%w: missing key", ErrInvalidPlugin)
	}

	r.put(&Record{
		Key:      key,
		Instance: p,
		Loaded:   true,
		Enabled:  enabledByDefault(p),
	})
	appLog.Debug("plugin registered", "key", key, "type", string(p.Type()))
	return key, nil
}

// RegisterLoader stores a lazy plugin under a generated key and returns it.
// The key is back-filled onto the loaded plugin if it has none.
func (r *Registry) RegisterLoader(l Loader) string {
	r.mu.Lock()
	key := lazyKeyPrefix + uuid.NewString()
	for r.records[key] != nil {
		key = lazyKeyPrefix + uuid.NewString()
	}
	r.putLocked(&Record{
		Key:     key,
		Loader:  wrapLoader(key, l),
		Enabled: true,
	})
	r.mu.Unlock()

	appLog.Debug("plugin registered lazily", "key", key)
	return key
}

func wrapLoader(key string, l Loader) Loader {
	return func(ctx context.Context) (any, error) {
		if l == nil {
			return nil, fmt.Errorf("plugin %q: %w", key, ErrMissingLoader)
		}
		v, err := l(ctx)
		if err != nil {
			return nil, err
		}
		p, ok := unwrap(v)
		if !ok {
			return nil, fmt.Errorf("plugin %q: %w: loader returned %T", key, ErrInvalidPlugin, v)
		}
		own, ok := keyOf(p)
		if !ok {
			return nil, fmt.Errorf("plugin %q: %w: loader returned nil %T", key, ErrInvalidPlugin, p)
		}
		if own == "" {
			if s, ok := p.(KeySetter); ok {
				s.SetKey(key)
			}
		}
		return p, nil
	}
}

func (r *Registry) put(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(rec)
}

func (r *Registry) putLocked(rec *Record) {
	if _, exists := r.records[rec.Key]; !exists {
		r.order = append(r.order, rec.Key)
	}
	r.records[rec.Key] = rec
}

// Load realizes the plugin behind key. Loaded plugins are returned from
// cache; otherwise the loader runs once and concurrent callers share its
// result. The first caller's ctx is the one handed to the loader. A failed
// load leaves the record unloaded so a later Load can retry. The record stays
// enabled only if it was enabled before and the plugin is enabled by default.
func (r *Registry) Load(ctx context.Context, key string) (Plugin, error) {
	r.mu.RLock()
	rec, ok := r.records[key]
	var (
		inst   Plugin
		loaded bool
		loader Loader
	)
	if ok {
		inst, loaded, loader = rec.Instance, rec.Loaded, rec.Loader
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", key, ErrUnknownPlugin)
	}
	if loaded {
		return inst, nil
	}
	if loader == nil {
		return nil, fmt.Errorf("plugin %q: %w", key, ErrMissingLoader)
	}

	v, err, _ := r.loads.Do(key, func() (any, error) {
		// A load that finished while this call queued has already filled the record.
		r.mu.Lock()
		if rec.Loaded {
			p := rec.Instance
			r.mu.Unlock()
			return p, nil
		}
		r.loading[key] = true
		r.mu.Unlock()

		defer func() {
			r.mu.Lock()
			delete(r.loading, key)
			r.mu.Unlock()
		}()

		res, err := loader(ctx)
		metrics.PluginLoads.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			appLog.Error("plugin load failed", err, "key", key)
			return nil, err
		}
		p, ok := unwrap(res)
		if !ok {
			return nil, fmt.Errorf("plugin %q: %w: loader returned %T", key, ErrInvalidPlugin, res)
		}

		r.mu.Lock()
		rec.Instance = p
		rec.Loaded = true
		// A caller's earlier Deactivate wins over the plugin's default.
		rec.Enabled = rec.Enabled && enabledByDefault(p)
		r.mu.Unlock()

		appLog.Debug("plugin loaded", "key", key, "type", string(p.Type()))
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Plugin), nil
}

// Activate loads the plugin if necessary, runs its activation hook and marks
// it enabled. A failing hook leaves the enabled flag untouched.
func (r *Registry) Activate(ctx context.Context, key string) (Plugin, error) {
	p, err := r.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	rec := r.records[key]
	r.mu.RUnlock()

	if a, ok := p.(Activator); ok {
		if err := a.Activate(ctx); err != nil {
			metrics.PluginTransitions.WithLabelValues("activate", metrics.ResultError).Inc()
			return nil, err
		}
	}

	r.setEnabled(key, rec, true)
	metrics.PluginTransitions.WithLabelValues("activate", metrics.ResultOK).Inc()
	appLog.Info("plugin activated", "key", key)
	return p, nil
}

// Deactivate runs the deactivation hook of a loaded plugin and marks it
// disabled. Never-loaded plugins are only marked disabled.
func (r *Registry) Deactivate(ctx context.Context, key string) error {
	r.mu.RLock()
	rec, ok := r.records[key]
	var inst Plugin
	if ok && rec.Loaded {
		inst = rec.Instance
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("plugin %q: %w", key, ErrUnknownPlugin)
	}

	if d, ok := inst.(Deactivator); ok {
		if err := d.Deactivate(ctx); err != nil {
			metrics.PluginTransitions.WithLabelValues("deactivate", metrics.ResultError).Inc()
			return err
		}
	}

	r.setEnabled(key, rec, false)
	metrics.PluginTransitions.WithLabelValues("deactivate", metrics.ResultOK).Inc()
	appLog.Info("plugin deactivated", "key", key)
	return nil
}

// setEnabled updates rec if it is still the record stored under key. A
// record replaced while a hook ran is left alone.
func (r *Registry) setEnabled(key string, rec *Record, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec == nil || r.records[key] != rec {
		return
	}
	rec.Enabled = enabled
}

// ListKeys returns registered keys in registration order.
func (r *Registry) ListKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Instance returns the realized plugin without triggering a load.
func (r *Registry) Instance(key string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	if !ok || !rec.Loaded {
		return nil, false
	}
	return rec.Instance, true
}

// Record returns a copy of the record for key.
func (r *Registry) Record(key string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns copies of all records in registration order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.records[key])
	}
	return out
}

// State reports the lifecycle state of key.
func (r *Registry) State(key string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	if !ok {
		return StateUnloaded, false
	}
	if r.loading[key] {
		return StateLoading, true
	}
	return stateOf(rec), true
}

// Enabled reports the enabled flag of key.
func (r *Registry) Enabled(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	return ok && rec.Enabled
}

// InvokeExport loads key and runs its exporter over events.
func (r *Registry) InvokeExport(ctx context.Context, key string, events []model.Event, cfg ExportConfig) (*ExportResult, error) {
	p, err := r.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	exp, ok := p.(Exporter)
	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", key, ErrNotExportPlugin)
	}

	data, err := exp.Export(ctx, events, cfg)
	metrics.Exports.WithLabelValues(exp.FormatName(), metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	name := cfg.Filename
	if name == "" {
		name = key
	}
	return &ExportResult{
		Format:      exp.FormatName(),
		Data:        data,
		Filename:    name + exp.FileExtension(),
		ContentType: exp.MIMEType(),
	}, nil
}
