// Command domhighlight overlays live highlight markers on elements of a
// browser page.
//
// Usage:
//
//	domhighlight -config highlight.yaml          # full session from YAML config
//	domhighlight -url https://example.com/a.svg -selector "circle.selected"
//	domhighlight -config highlight.yaml -mcp     # also expose MCP tools on stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domhighlight/dbopen"
	"github.com/hazyhaar/domhighlight/observability"
	"github.com/hazyhaar/domhighlight/session"
)

var buildVersion = "0.1.0"

type selectorList []string

func (s *selectorList) String() string { return fmt.Sprint(*s) }
func (s *selectorList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to highlight.yaml config file")
	pageURL := flag.String("url", "", "highlight a single URL (use with -selector)")
	headful := flag.Bool("headful", false, "run Chrome with a visible window")
	useMCP := flag.Bool("mcp", false, "serve MCP control tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	var selectors selectorList
	flag.Var(&selectors, "selector", "CSS selector to highlight (repeatable)")
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

	if err := run(ctx, logger, *configPath, *pageURL, selectors, *headful, *useMCP); err != nil {
		logger.Error("domhighlight: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, pageURL string, selectors []string, headful, useMCP bool) error {
	cfg, err := buildConfig(configPath, pageURL, selectors, headful)
	if err != nil {
		return err
	}

	var opts []session.Option
	if cfg.EventLog.Path != "" {
		db, err := dbopen.Open(cfg.EventLog.Path,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(observability.Schema),
		)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer db.Close()

		if cfg.EventLog.RetentionDays > 0 {
			if err := observability.Cleanup(ctx, db, cfg.EventLog.RetentionDays); err != nil {
				logger.Warn("domhighlight: event log cleanup failed", "error", err)
			}
		}
		opts = append(opts, session.WithRefreshLog(observability.NewRefreshLog(db)))
	}

	ses, err := session.New(cfg, logger, opts...)
	if err != nil {
		return err
	}

	if err := ses.Start(ctx); err != nil {
		return err
	}
	defer ses.Stop()

	if cfg.HTTP.Addr != "" {
		r := chi.NewRouter()
		ses.RegisterHTTP(r)
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
		go func() {
			logger.Info("domhighlight: control API listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("domhighlight: http server failed", "error", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		}()
	}

	if useMCP {
		srv := mcp.NewServer(&mcp.Implementation{Name: "domhighlight", Version: buildVersion}, nil)
		ses.RegisterMCP(srv)
		logger.Info("domhighlight: MCP tools on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	<-ctx.Done()
	return nil
}

func buildConfig(configPath, pageURL string, selectors []string, headful bool) (*session.Config, error) {
	var cfg *session.Config

	switch {
	case configPath != "":
		loaded, err := session.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case pageURL != "":
		cfg = &session.Config{}
		cfg.Page.URL = pageURL
		if len(selectors) == 0 {
			return nil, fmt.Errorf("at least one -selector is required with -url")
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: domhighlight -config <file> | -url <url> -selector <css>")
		os.Exit(1)
	}

	for _, css := range selectors {
		cfg.Page.Selectors = append(cfg.Page.Selectors, session.SelectorConfig{CSS: css})
	}
	if headful {
		v := false
		cfg.Browser.Headless = &v
	}
	cfg.Defaults()
	return cfg, cfg.Validate()
}
