package main

import (
	"context"
	"errors"
	"fmt"

	"calkit/internal/config"
	"calkit/internal/ics"
	appLog "calkit/internal/log"
	"calkit/internal/plugin"
	"calkit/internal/plugins/csvexport"
	"calkit/internal/plugins/darktheme"
	"calkit/internal/plugins/gcal"
	"calkit/internal/plugins/icsexport"
	"calkit/internal/plugins/icsfeed"
	"calkit/internal/plugins/jsonexport"
	"calkit/internal/plugins/pdfexport"
	"calkit/internal/plugins/timeline"
	"calkit/internal/refresh"
	"calkit/internal/web"
)

// app bundles the wired components for one config.
type app struct {
	cfg       *config.Config
	registry  *plugin.Registry
	refresher *refresh.Refresher
	theme     *darktheme.Properties
}

// newApp registers the built-in plugins. Nothing is activated yet.
func newApp(cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	sheet := darktheme.NewProperties()
	reg := plugin.NewRegistry()

	google := gcal.New(map[string]any{
		"access_token": cfg.Google.AccessToken,
		"calendar_id":  cfg.Google.CalendarID,
	})
	google.Disabled = cfg.Google.AccessToken == ""

	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, src := range cfg.ICS {
		sources = append(sources, ics.Source{ID: src.ID, URL: src.URL})
	}
	feed := icsfeed.New(ics.NewFetcher(cfg.CacheDir, nil), sources)
	feed.Disabled = len(sources) == 0

	for _, p := range []plugin.Plugin{
		csvexport.New(),
		jsonexport.New(),
		icsexport.New(),
		pdfexport.New(nil),
		google,
		feed,
		darktheme.New(sheet),
		timeline.New(),
	} {
		if _, err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	ref := refresh.New(reg, refresh.Options{
		HorizonDays:   cfg.HorizonDays,
		Location:      loc,
		PluginOptions: cfg.PluginOptions(),
	})

	return &app{cfg: cfg, registry: reg, refresher: ref, theme: sheet}, nil
}

// activate runs the activation hooks of every enabled plugin, then applies
// the enabled overrides from the config. Failures are collected; the
// remaining plugins are still processed.
func (a *app) activate(ctx context.Context) error {
	var errs []error
	if err := a.registry.ActivateEnabled(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, pc := range a.cfg.Plugins {
		if pc.Enabled == nil {
			continue
		}
		var err error
		if *pc.Enabled {
			_, err = a.registry.Activate(ctx, pc.Key)
		} else {
			err = a.registry.Deactivate(ctx, pc.Key)
		}
		if err != nil {
			appLog.Error("plugin override failed", err, "key", pc.Key, "enabled", *pc.Enabled)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) server() *web.Server {
	return web.NewServer(a.cfg, web.Deps{
		Registry:  a.registry,
		Refresher: a.refresher,
		Theme:     a.theme,
	})
}
