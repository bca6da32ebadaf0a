package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/xob0t/FormStencil/pkg/auth"
	"github.com/xob0t/FormStencil/pkg/bot"
	"github.com/xob0t/FormStencil/pkg/config"
	"github.com/xob0t/FormStencil/pkg/layout"
	"github.com/xob0t/FormStencil/pkg/session"
	"github.com/xob0t/FormStencil/pkg/template"
)

// app holds the components every subcommand shares.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	registry   *template.Registry
	layouts    layout.Store
	closeStore func() error
	renderer   *template.Renderer
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := cfg.Log.NewLogger(os.Stderr)
	layout.SetLogger(log.With("component", "layout"))
	template.SetLogger(log.With("component", "template"))

	store, closeStore, err := layout.Open(ctx, cfg.LayoutOptions())
	if err != nil {
		return nil, fmt.Errorf("open layout store: %w", err)
	}

	registry := template.NewRegistry(cfg.TemplatesDir)
	renderer := template.NewRenderer(registry, store,
		template.WithFontResolver(template.NewFontResolver(cfg.Fonts.Paths...)),
		template.WithTimeout(cfg.Render.Timeout),
	)

	log.Debug("app ready", "templates", cfg.TemplatesDir, "backend", cfg.Store.Backend, "output", cfg.OutputDir)
	return &app{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		layouts:    store,
		closeStore: closeStore,
		renderer:   renderer,
	}, nil
}

func (a *app) Close() error {
	return a.closeStore()
}

// ensureDirs creates the working directories the bot writes into.
func (a *app) ensureDirs() error {
	var errs []error
	for _, dir := range []string{a.cfg.TemplatesDir, a.cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

// chat wires the auth gate, session machine and command router.
func (a *app) chat() (*auth.Gate, *bot.Router, error) {
	gate, err := auth.NewGate(a.cfg.Auth.Password, a.cfg.Auth.PasswordHash, a.log.With("component", "auth"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set %s or auth.password)", err, config.EnvPassword)
	}
	machine := session.New(session.Deps{
		Auth:      gate,
		Templates: a.registry,
		Layouts:   a.layouts,
		Filler:    a.renderer,
		OutputDir: a.cfg.OutputDir,
		TTL:       a.cfg.Session.TTL,
		Logger:    a.log.With("component", "session"),
	})
	return gate, bot.NewRouter(gate, machine, a.registry, a.log.With("component", "bot")), nil
}

func (a *app) tokens() (*auth.Tokens, error) {
	secret := []byte(a.cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		var err error
		if secret, err = auth.GenerateSecret(); err != nil {
			return nil, err
		}
		a.log.Warn("no jwt_secret configured, tokens will not survive a restart")
	}
	return auth.NewTokens(secret, a.cfg.Auth.TokenTTL)
}
