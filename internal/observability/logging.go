// Package observability builds the engine's structured logger, metrics
// registry, and tracer: the ambient instrumentation every other package
// plugs into rather than reaching for its own.
package observability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures the logging behavior.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error"
	Level string

	// Format specifies output format: "json" or "text"
	// JSON format is recommended for production; text for development
	Format string

	// Output is the writer for log output (defaults to os.Stdout)
	Output io.Writer

	// AddSource includes file and line number in log records
	AddSource bool

	// RedactPatterns are additional regex patterns for sensitive data
	// redaction, layered on top of DefaultRedactPatterns.
	RedactPatterns []string
}

// ContextKey is the type for context keys used in logging.
type ContextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey ContextKey = "request_id"

	// SessionIDKey is the context key for the agent session id.
	SessionIDKey ContextKey = "session_id"

	// UserIDKey is the context key for the invoking user id.
	UserIDKey ContextKey = "user_id"

	// ChannelKey is the context key for the agent family ("claude",
	// "codex", "copilot", "freeform").
	ChannelKey ContextKey = "channel"
)

// DefaultRedactPatterns contains regex patterns for common sensitive data
// that might otherwise leak into a spawned agent's raw stdout/stderr lines.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["\']?([a-zA-Z0-9_\-]{16,})["\']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-\.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["\']?([^\s"']{8,})["\']?`,

	// Anthropic API keys
	`sk-ant-[a-zA-Z0-9_-]{95,}`,

	// OpenAI-shaped API keys (48 chars after sk-)
	`sk-[a-zA-Z0-9]{48,}`,

	// JWT tokens
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,

	// Generic hex secrets (32+ chars)
	`(?i)(secret|key|token)[\s:=]+["\']?([a-fA-F0-9]{32,})["\']?`,

	// GitHub / Slack / cloud provider tokens
	`gh[pos]_[a-zA-Z0-9]{20,}`,
	`github_pat_[a-zA-Z0-9_]{20,}`,
	`xox[baprs]-[a-zA-Z0-9-]{10,}`,
	`AKIA[0-9A-Z]{16}`,
}

// redactingHandler wraps a slog.Handler and redacts matched patterns from
// the record message and any string-shaped attribute before delegating,
// and folds well-known correlation fields out of the record's context.
type redactingHandler struct {
	slog.Handler
	redacts []*regexp.Regexp
}

func newRedactingHandler(h slog.Handler, redacts []*regexp.Regexp) *redactingHandler {
	return &redactingHandler{Handler: h, redacts: redacts}
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, h.redactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(h.redactAttr(a))
		return true
	})

	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		nr.AddAttrs(slog.String("request_id", v))
	}
	if v, ok := ctx.Value(SessionIDKey).(string); ok && v != "" {
		nr.AddAttrs(slog.String("session_id", v))
	}
	if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
		nr.AddAttrs(slog.String("user_id", v))
	}
	if v, ok := ctx.Value(ChannelKey).(string); ok && v != "" {
		nr.AddAttrs(slog.String("channel", v))
	}

	return h.Handler.Handle(ctx, nr)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	red := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		red[i] = h.redactAttr(a)
	}
	return &redactingHandler{Handler: h.Handler.WithAttrs(red), redacts: h.redacts}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{Handler: h.Handler.WithGroup(name), redacts: h.redacts}
}

func (h *redactingHandler) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactString(a.Value.String()))
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, h.redactString(v.Error()))
		case map[string]any:
			return slog.Any(a.Key, h.redactMap(v))
		case map[string]string:
			m := make(map[string]any, len(v))
			for k, vv := range v {
				m[k] = vv
			}
			return slog.Any(a.Key, h.redactMap(m))
		default:
			if b, err := json.Marshal(v); err == nil {
				return slog.String(a.Key, h.redactString(string(b)))
			}
		}
	}
	return a
}

func (h *redactingHandler) redactString(s string) string {
	for _, re := range h.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

func (h *redactingHandler) redactMap(m map[string]any) map[string]any {
	sensitive := map[string]bool{
		"password": true, "passwd": true, "secret": true, "token": true,
		"api_key": true, "apikey": true, "private_key": true,
		"privatekey": true, "auth": true, "authorization": true,
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		lowerKey := strings.ToLower(strings.ReplaceAll(k, "-", "_"))
		if sensitive[lowerKey] {
			out[k] = "[REDACTED]"
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = h.redactString(s)
			continue
		}
		out[k] = v
	}
	return out
}

// NewLogger builds a *slog.Logger whose handler redacts sensitive
// substrings (API keys, tokens, passwords found in an agent's own stdout
// can otherwise flow straight into log output) and folds request/session/
// user/channel correlation out of a context.Context carrying them, so
// every other package in the tree — executor, approval, normalize — can
// take this as a drop-in *slog.Logger with no call-site changes.
func NewLogger(config LogConfig) *slog.Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Level == "" {
		config.Level = "info"
	}
	if config.Format == "" {
		config.Format = "json"
	}

	opts := &slog.HandlerOptions{
		Level:     LogLevelFromString(config.Level),
		AddSource: config.AddSource,
	}

	var base slog.Handler
	if config.Format == "text" {
		base = slog.NewTextHandler(config.Output, opts)
	} else {
		base = slog.NewJSONHandler(config.Output, opts)
	}

	patterns := make([]string, 0, len(DefaultRedactPatterns)+len(config.RedactPatterns))
	patterns = append(patterns, DefaultRedactPatterns...)
	patterns = append(patterns, config.RedactPatterns...)

	redacts := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}

	return slog.New(newRedactingHandler(base, redacts))
}

// MustNewLogger is like NewLogger, kept for symmetry with the rest of the
// engine's Must-prefixed constructors used during startup in cmd/enginedemo.
func MustNewLogger(config LogConfig) *slog.Logger {
	return NewLogger(config)
}

// AddRequestID adds a request ID to the context.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// AddSessionID adds the agent session id to the context.
func AddSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// AddUserID adds a user ID to the context.
func AddUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// AddChannel adds an agent family label to the context.
func AddChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, ChannelKey, channel)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionIDKey).(string)
	return v
}

// LogLevelFromString converts a string to a slog.Level, defaulting to Info
// for anything unrecognized.
func LogLevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
