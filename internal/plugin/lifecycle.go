package plugin

import (
	"context"
	"errors"
	"fmt"

	appLog "calkit/internal/log"
)

// ActivateEnabled activates every record currently marked enabled, in
// registration order. Lazy plugins are loaded on the way. Failures are
// collected; the remaining plugins are still activated.
func (r *Registry) ActivateEnabled(ctx context.Context) error {
	var errs []error
	for _, rec := range r.Records() {
		if !rec.Enabled {
			continue
		}
		// A lazy plugin may declare itself disabled once loaded.
		if !rec.Loaded {
			p, err := r.Load(ctx, rec.Key)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", rec.Key, err))
				continue
			}
			if !enabledByDefault(p) {
				continue
			}
		}
		if _, err := r.Activate(ctx, rec.Key); err != nil {
			appLog.Error("plugin activation failed", err, "key", rec.Key)
			errs = append(errs, fmt.Errorf("%s: %w", rec.Key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to activate %d plugins: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Named pairs a plugin capability with its registry key.
type Named[T any] struct {
	Key    string
	Plugin T
}

// DataSources returns the loaded, enabled plugins implementing DataSource.
func (r *Registry) DataSources() []Named[DataSource] {
	return collect[DataSource](r)
}

// Views returns the loaded, enabled plugins implementing View.
func (r *Registry) Views() []Named[View] {
	return collect[View](r)
}

// Exporters returns the loaded, enabled plugins implementing Exporter.
func (r *Registry) Exporters() []Named[Exporter] {
	return collect[Exporter](r)
}

func collect[T any](r *Registry) []Named[T] {
	var out []Named[T]
	for _, rec := range r.Records() {
		if !rec.Loaded || !rec.Enabled {
			continue
		}
		if c, ok := rec.Instance.(T); ok {
			out = append(out, Named[T]{Key: rec.Key, Plugin: c})
		}
	}
	return out
}
