package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	flag "github.com/spf13/pflag"

	"github.com/hazyhaar/mdgate/config"
	"github.com/hazyhaar/mdgate/origin"
	"github.com/hazyhaar/mdgate/pipeline"
	"github.com/hazyhaar/mdgate/render"
	"github.com/hazyhaar/mdgate/shield"
)

// serveFlags overlays command-line values on the loaded configuration.
type serveFlags struct {
	set          *flag.FlagSet
	configPath   string
	listen       string
	originURL    string
	artifactDir  string
	prefix       string
	pattern      string
	selectors    []string
	attribution  string
	logLevel     string
	sanitize     bool
	preserveHost bool
	fetchTimeout time.Duration
}

func newServeFlags(stderr io.Writer) *serveFlags {
	f := &serveFlags{set: flag.NewFlagSet("serve", flag.ContinueOnError)}
	f.set.SetOutput(stderr)
	f.set.StringVarP(&f.configPath, "config", "c", env("MDGATE_CONFIG", ""), "YAML config file")
	f.set.StringVar(&f.listen, "listen", "", "listen address")
	f.set.StringVar(&f.originURL, "origin", "", "origin base URL")
	f.set.StringVar(&f.artifactDir, "artifact-dir", "", "serve Markdown artifacts from this directory")
	f.set.StringVar(&f.prefix, "prefix", "", "Markdown path prefix")
	f.set.StringVar(&f.pattern, "pattern", "", "artifact file pattern (index or direct)")
	f.set.StringArrayVar(&f.selectors, "selector", nil, "content selector, in priority order (repeatable)")
	f.set.StringVar(&f.attribution, "attribution", "", "closing line appended to converted pages")
	f.set.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	f.set.BoolVar(&f.sanitize, "sanitize", true, "sanitise HTML before conversion")
	f.set.BoolVar(&f.preserveHost, "preserve-host", false, "forward the inbound Host header")
	f.set.DurationVar(&f.fetchTimeout, "fetch-timeout", 0, "timeout for origin response headers")
	return f
}

// resolve layers defaults, config file, environment and flags.
func (f *serveFlags) resolve(lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	changed := f.set.Changed
	if changed("listen") {
		cfg.Listen = f.listen
	}
	if changed("origin") {
		cfg.OriginURL = f.originURL
	}
	if changed("artifact-dir") {
		cfg.ArtifactDir = f.artifactDir
	}
	if changed("prefix") {
		cfg.MarkdownPathPrefix = f.prefix
	}
	if changed("pattern") {
		cfg.MarkdownFilePattern = f.pattern
	}
	if changed("selector") {
		cfg.ContentSelectors = f.selectors
	}
	if changed("attribution") {
		cfg.Attribution = f.attribution
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("sanitize") {
		cfg.Sanitize = f.sanitize
	}
	if changed("preserve-host") {
		cfg.PreserveHost = f.preserveHost
	}
	if changed("fetch-timeout") {
		cfg.FetchTimeout = f.fetchTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	f := newServeFlags(stderr)
	if err := f.set.Parse(args); err != nil {
		return err
	}
	cfg, err := f.resolve(os.LookupEnv)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.LogLevel, os.Stdout)

	handler, err := newRouter(cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"listen", cfg.Listen,
			"origin", cfg.OriginURL,
			"prefix", cfg.MarkdownPathPrefix,
			"pattern", cfg.MarkdownFilePattern,
			"artifact_dir", cfg.ArtifactDir,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

// newRouter wires the pipeline behind the edge middleware. Everything but
// the health endpoint reaches the pipeline, whatever the method.
func newRouter(cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	client, err := origin.New(origin.Config{
		BaseURL:      cfg.OriginURL,
		Timeout:      cfg.FetchTimeout,
		PreserveHost: cfg.PreserveHost,
	})
	if err != nil {
		return nil, err
	}

	selectors, err := cfg.Selectors()
	if err != nil {
		logger.Warn("config: skipping invalid content selectors", "error", err)
	}

	pc := pipeline.Config{
		Classifier:   cfg.Classifier(),
		Mapper:       cfg.Mapper(),
		Origin:       client,
		Renderer:     render.New(render.WithSanitize(cfg.Sanitize), render.WithLogger(logger)),
		Selectors:    selectors,
		Attribution:  cfg.Attribution,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.ArtifactDir != "" {
		pc.Artifacts = origin.NewDir(cfg.ArtifactDir)
	}
	h, err := pipeline.New(pc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	for _, mw := range shield.EdgeStack(cfg.TraceIDs()) {
		r.Use(mw)
	}
	r.Get(cfg.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/*", h)
	r.MethodNotAllowed(h.ServeHTTP)
	return r, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
