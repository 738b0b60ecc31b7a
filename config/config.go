// Package config loads the mdgate configuration: defaults, then an optional
// YAML file, then MDGATE_* environment overrides. The result is validated
// once and treated as read-only afterwards.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mdgate/agent"
	"github.com/hazyhaar/mdgate/extract"
	"github.com/hazyhaar/mdgate/horosafe"
	"github.com/hazyhaar/mdgate/idgen"
	"github.com/hazyhaar/mdgate/mdpath"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MDGATE_"

// Config holds the full mdgate configuration. An empty ArtifactDir fetches
// artifacts from the origin; TraceID selects the trace ID format (hex or uuid).
type Config struct {
	Listen              string        `yaml:"listen" json:"listen"`
	OriginURL           string        `yaml:"origin_url" json:"origin_url"`
	ArtifactDir         string        `yaml:"artifact_dir" json:"artifact_dir"`
	MarkdownPathPrefix  string        `yaml:"markdown_path_prefix" json:"markdown_path_prefix"`
	MarkdownFilePattern string        `yaml:"markdown_file_pattern" json:"markdown_file_pattern"`
	ContentSelectors    []string      `yaml:"content_selectors" json:"content_selectors"`
	AIUserAgents        []string      `yaml:"ai_user_agents" json:"ai_user_agents"`
	Attribution         string        `yaml:"attribution" json:"attribution"`
	Sanitize            bool          `yaml:"sanitize" json:"sanitize"`
	PreserveHost        bool          `yaml:"preserve_host" json:"preserve_host"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	MaxBodyBytes        int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	LogLevel            string        `yaml:"log_level" json:"log_level"`
	HealthPath          string        `yaml:"health_path" json:"health_path"`
	TraceID             string        `yaml:"trace_id" json:"trace_id"`
}

// DefaultConfig returns sane defaults. OriginURL has no default.
func DefaultConfig() *Config {
	return &Config{
		Listen:              ":8080",
		MarkdownPathPrefix:  "/md",
		MarkdownFilePattern: string(mdpath.PatternIndex),
		ContentSelectors:    []string{"body"},
		AIUserAgents:        append([]string(nil), agent.DefaultPatterns...),
		Sanitize:            true,
		FetchTimeout:        10 * time.Second,
		MaxBodyBytes:        horosafe.MaxResponseBody,
		LogLevel:            "info",
		HealthPath:          "/_mdgate/health",
		TraceID:             idgen.FormatHex,
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file. The result is not validated: callers apply env and
// flag overrides first, then call Validate.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MDGATE_* variables found through lookup,
// typically os.LookupEnv. List values are comma-separated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		return lookup(EnvPrefix + name)
	}
	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := get(name); ok {
			*dst = SplitList(v)
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("LISTEN", &c.Listen)
	str("ORIGIN_URL", &c.OriginURL)
	str("ARTIFACT_DIR", &c.ArtifactDir)
	str("MARKDOWN_PATH_PREFIX", &c.MarkdownPathPrefix)
	str("MARKDOWN_FILE_PATTERN", &c.MarkdownFilePattern)
	list("CONTENT_SELECTORS", &c.ContentSelectors)
	list("AI_USER_AGENTS", &c.AIUserAgents)
	str("ATTRIBUTION", &c.Attribution)
	str("LOG_LEVEL", &c.LogLevel)
	str("HEALTH_PATH", &c.HealthPath)
	str("TRACE_ID", &c.TraceID)

	if err := boolean("SANITIZE", &c.Sanitize); err != nil {
		return err
	}
	if err := boolean("PRESERVE_HOST", &c.PreserveHost); err != nil {
		return err
	}
	if v, ok := get("FETCH_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sFETCH_TIMEOUT: %w", EnvPrefix, err)
		}
		c.FetchTimeout = d
	}
	if v, ok := get("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, err)
		}
		c.MaxBodyBytes = n
	}
	return nil
}

// SplitList splits a comma-separated value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var (
	prefixRe = regexp.MustCompile(`^/[^?#\s]*[^/?#\s]$`)
	pathRe   = regexp.MustCompile(`^/[^?#\s]*$`)
)

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.OriginURL, validation.Required, validation.By(absoluteHTTPURL)),
		validation.Field(&c.MarkdownPathPrefix, validation.Required,
			validation.Match(prefixRe).Error("must start with / and have no trailing slash")),
		validation.Field(&c.MarkdownFilePattern, validation.Required, validation.By(filePattern)),
		validation.Field(&c.AIUserAgents, validation.Required,
			validation.Each(validation.By(nonBlank))),
		validation.Field(&c.FetchTimeout, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.MaxBodyBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.HealthPath, validation.Required, validation.Match(pathRe)),
		validation.Field(&c.TraceID, validation.In(idgen.FormatHex, idgen.FormatUUID)),
	)
}

func absoluteHTTPURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) url")
	}
	return nil
}

func filePattern(value any) error {
	s, _ := value.(string)
	_, err := mdpath.ParsePattern(s)
	return err
}

func nonBlank(value any) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}

// Mapper builds the artifact path mapper. Call after Validate.
func (c *Config) Mapper() mdpath.Mapper {
	return mdpath.New(c.MarkdownPathPrefix, mdpath.Pattern(c.MarkdownFilePattern))
}

// Classifier builds the user-agent classifier.
func (c *Config) Classifier() *agent.Classifier {
	return agent.New(c.AIUserAgents)
}

// TraceIDs returns the trace ID generator. Call after Validate.
func (c *Config) TraceIDs() idgen.Generator {
	gen, err := idgen.ByName(c.TraceID)
	if err != nil {
		return idgen.Hex(8)
	}
	return gen
}

// Selectors parses ContentSelectors. Invalid entries are skipped; the
// returned error describes them and is informational only.
func (c *Config) Selectors() ([]extract.Selector, error) {
	return extract.ParseSelectors(c.ContentSelectors)
}
