// Package agent classifies HTTP callers as AI crawling agents from their
// User-Agent header.
package agent

import "strings"

// DefaultPatterns are the lowercase substrings that identify known AI
// crawlers and assistants.
var DefaultPatterns = []string{
	"claude", "anthropic", "claude-bot",
	"gptbot", "chatgpt", "openai",
	"google-extended", "googlebot-extended", "bard", "gemini",
	"perplexity", "perplexitybot",
	"bytespider", "ccbot", "meta-externalagent",
	"cohere", "youbot", "anthropicbot",
}

// Classifier matches User-Agent headers against a fixed set of patterns.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	patterns []string
}

// New creates a Classifier. Patterns are lower-cased and trimmed; empty
// patterns are dropped so they cannot match every header.
func New(patterns []string) *Classifier {
	c := &Classifier{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			c.patterns = append(c.patterns, p)
		}
	}
	return c
}

// IsAI reports whether userAgent identifies an AI agent.
func (c *Classifier) IsAI(userAgent string) bool {
	_, ok := c.Match(userAgent)
	return ok
}

// Match returns the first configured pattern found in userAgent.
func (c *Classifier) Match(userAgent string) (string, bool) {
	if userAgent == "" {
		return "", false
	}
	lower := strings.ToLower(userAgent)
	for _, p := range c.patterns {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// Patterns returns a copy of the normalised patterns.
func (c *Classifier) Patterns() []string {
	return append([]string(nil), c.patterns...)
}
