package main

import (
	"fmt"
	"io"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/hazyhaar/mdgate/config"
	"github.com/hazyhaar/mdgate/extract"
	"github.com/hazyhaar/mdgate/horosafe"
	"github.com/hazyhaar/mdgate/origin"
	"github.com/hazyhaar/mdgate/render"
)

// runConvert renders one HTML page from stdin exactly as the proxy would,
// for pre-generating artifacts.
func runConvert(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "YAML config file (selectors, attribution, sanitize)")
	selectors := fs.StringArray("selector", nil, "content selector, in priority order (repeatable)")
	baseURL := fs.String("base", "", "base URL for relative links")
	attribution := fs.String("attribution", "", "closing line appended to the document")
	sanitize := fs.Bool("sanitize", true, "sanitise HTML before conversion")
	maxBytes := fs.Int64("max-bytes", horosafe.MaxResponseBody, "maximum input size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if fs.Changed("selector") {
		cfg.ContentSelectors = *selectors
	}
	if fs.Changed("attribution") {
		cfg.Attribution = *attribution
	}
	if fs.Changed("sanitize") {
		cfg.Sanitize = *sanitize
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sels, err := cfg.Selectors()
	if err != nil {
		logger.Warn("convert: skipping invalid content selectors", "error", err)
	}

	data, err := horosafe.LimitedReadAll(stdin, *maxBytes)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if data, err = origin.DecodeCharset(data, ""); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	body, err := convertPage(data, sels, cfg, *baseURL, logger)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, body)
	return err
}

func convertPage(data []byte, sels []extract.Selector, cfg *config.Config, baseURL string, logger *slog.Logger) (string, error) {
	res, err := extract.ExtractString(string(data), sels)
	if err != nil {
		return "", err
	}
	md, err := render.New(render.WithSanitize(cfg.Sanitize), render.WithLogger(logger)).RenderNode(res, baseURL)
	if err != nil {
		return "", err
	}
	return render.Compose(res.Title, md, cfg.Attribution), nil
}
