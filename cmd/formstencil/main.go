// FormStencil - Fill document templates from chat messages.
//
// Usage:
//
//	formstencil serve [--config formstencil.yaml] [--listen :8080]
//	formstencil chat [--config formstencil.yaml]
//	formstencil fill --template <name> [--data <path>] [--set field=value ...] [-o <file>]
//	formstencil templates
//	formstencil configure --layout <path>
//	formstencil init
//	formstencil hash-password <password>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/xob0t/FormStencil/clients/console"
	"github.com/xob0t/FormStencil/clients/server"
	"github.com/xob0t/FormStencil/pkg/auth"
	"github.com/xob0t/FormStencil/pkg/config"
	"github.com/xob0t/FormStencil/pkg/layout"
	"github.com/xob0t/FormStencil/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "chat":
		err = runChat(ctx, os.Args[2:])
	case "fill":
		err = runFill(ctx, os.Args[2:])
	case "templates":
		err = runTemplates(ctx, os.Args[2:])
	case "configure":
		err = runConfigure(ctx, os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "hash-password":
		err = runHashPassword(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		stop()
		fatal(err)
	}
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", config.DefaultPath, "Path to the YAML config file")
}

// ── Transports ──

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := configFlag(fs)
	listen := fs.String("listen", "", "Listen address (overrides server.listen)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ensureDirs(); err != nil {
		return err
	}

	gate, router, err := a.chat()
	if err != nil {
		return err
	}
	tokens, err := a.tokens()
	if err != nil {
		return err
	}

	addr := a.cfg.Server.Listen
	if *listen != "" {
		addr = *listen
	}
	srv := server.New(server.Deps{
		Gate:      gate,
		Router:    router,
		Tokens:    tokens,
		Templates: a.registry,
		Layouts:   a.layouts,
		OutputDir: a.cfg.OutputDir,
		Rate:      a.cfg.Server.Rate,
		Burst:     a.cfg.Server.Burst,
		Logger:    a.log.With("component", "server"),
	})
	return srv.ListenAndServe(ctx, addr)
}

func runChat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ensureDirs(); err != nil {
		return err
	}

	_, router, err := a.chat()
	if err != nil {
		return err
	}
	err = console.New(router, os.Stdin, os.Stdout).Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// ── One-shot commands ──

// fieldFlags collects repeated --set field=value flags.
type fieldFlags template.FillRequest

func (f fieldFlags) String() string { return fmt.Sprint(map[string]string(f)) }

func (f fieldFlags) Set(s string) error {
	parsed := template.ParseFillRequest(s)
	if len(parsed) == 0 {
		return fmt.Errorf("want field=value, got %q", s)
	}
	for k, v := range parsed {
		f[k] = v
	}
	return nil
}

func runFill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fill", flag.ExitOnError)
	cfgPath := configFlag(fs)
	var tmpl, dataPath, output string
	set := fieldFlags{}
	fs.StringVar(&tmpl, "template", "", "Template file name in the templates directory")
	fs.StringVar(&dataPath, "data", "", "JSON object of field values, or a field=value text file")
	fs.Var(set, "set", "Field value as field=value (repeatable)")
	fs.StringVar(&output, "o", "", "Output file (default: <output_dir>/filled_<time>_<template>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if tmpl == "" {
		return fmt.Errorf("--template is required")
	}

	req, err := loadFillData(dataPath)
	if err != nil {
		return err
	}
	for k, v := range set {
		req[k] = v
	}
	if len(req) == 0 {
		return fmt.Errorf("%w: no field values given (use --data or --set)", template.ErrInputUnparseable)
	}

	a, err := newApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if output == "" {
		output = filepath.Join(a.cfg.OutputDir, template.OutputName(tmpl, time.Now()))
	}
	fmt.Printf("Filling: %s\n", tmpl)
	res, err := a.renderer.Fill(ctx, tmpl, req, output)
	if err != nil {
		return err
	}
	for _, name := range res.Ignored {
		fmt.Fprintf(os.Stderr, "Warning: %q is not a field of %s\n", name, tmpl)
	}
	for _, name := range res.Missing {
		fmt.Fprintf(os.Stderr, "Warning: field %q left blank\n", name)
	}
	fmt.Printf("Done: %s\n", res.OutputPath)
	return nil
}

func loadFillData(path string) (template.FillRequest, error) {
	if path == "" {
		return template.FillRequest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		req := template.FillRequest{}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", template.ErrInputUnparseable, path, err)
		}
		return req, nil
	}
	return template.ParseFillRequest(string(data)), nil
}

func runTemplates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("templates", flag.ExitOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	names := a.registry.List()
	if len(names) == 0 {
		fmt.Printf("No templates in %s\n", a.cfg.TemplatesDir)
		return nil
	}
	for i, name := range names {
		status := "no layout"
		if l, ok := a.layouts.Load(ctx, name); ok && !l.Empty() {
			status = strings.Join(l.FieldNames(), ", ")
		}
		fmt.Printf("%d. %s  [%s]\n", i+1, name, status)
	}
	return nil
}

func runConfigure(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	cfgPath := configFlag(fs)
	layoutPath := fs.String("layout", "", "Layout JSON to save")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *layoutPath == "" {
		return fmt.Errorf("--layout is required")
	}

	data, err := os.ReadFile(*layoutPath)
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}
	l, err := layout.ParseSubmission(data, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.layouts.Save(ctx, l.TemplateName, l); err != nil {
		return err
	}
	if _, err := a.registry.Path(l.TemplateName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: no template file %s in %s yet\n", l.TemplateName, a.cfg.TemplatesDir)
	}
	fmt.Printf("Saved layout for %s (%d fields)\n", l.TemplateName, len(l.Fields))
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var layoutOut, configOut string
	fs.StringVar(&layoutOut, "layout", "layout.json", "Output path for the sample layout")
	fs.StringVar(&configOut, "config", config.DefaultPath, "Output path for the default config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.WriteFile(layoutOut, []byte(layout.ExampleJSON()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}

	if _, err := os.Stat(configOut); err == nil {
		fmt.Printf("Kept existing %s\n", configOut)
	} else {
		f, err := os.Create(configOut)
		if err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		if err := config.Encode(f, config.Default()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	fmt.Printf("Created: %s, %s\n", layoutOut, configOut)
	fmt.Printf("Run: formstencil configure --layout %s\n", layoutOut)
	return nil
}

func runHashPassword(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: formstencil hash-password <password>")
	}
	h, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`FormStencil - Fill document templates from chat messages

USAGE:
    formstencil serve [--config <path>] [--listen <addr>]
    formstencil chat [--config <path>]
    formstencil fill --template <name> [--data <path>] [--set field=value ...] [-o <file>]
    formstencil templates [--config <path>]
    formstencil configure --layout <path> [--config <path>]
    formstencil init [--layout layout.json] [--config formstencil.yaml]
    formstencil hash-password <password>

TRANSPORTS:
    serve                  HTTP JSON API (login, messages, filled documents)
    chat                   Terminal dialogue for the local operator

ONE-SHOT:
    fill                   Fill a template without a dialogue
    templates              List templates and their configured fields
    configure              Save a layout JSON for a template
    init                   Write a sample layout and the default config
    hash-password          Print a bcrypt hash for auth.password_hash

ENVIRONMENT:
    FORMSTENCIL_PASSWORD, ADMIN_PASSWORD    Operator password
    FORMSTENCIL_PASSWORD_HASH               bcrypt hash of the operator password
    FORMSTENCIL_JWT_SECRET                  Token signing secret for serve
    FORMSTENCIL_REDIS_ADDR                  Redis address for store.backend=redis
    FORMSTENCIL_DSN                         Postgres or MySQL DSN

EXAMPLES:
    formstencil init
    formstencil configure --layout layout.json
    formstencil fill --template document.jpg --set name="Jane Doe" --set date=01.01.2024
    ADMIN_PASSWORD=secret formstencil chat
`)
}
