package observability

import (
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// exportedPrefixes are the attribute namespaces jsbundle emits on purpose.
var exportedPrefixes = []string{
	"jsbundle.", "bundle.", "module.", "cache.", "error.",
	"http.", "url.", "mcp.", "lsp.",
}

// neverExported keys may carry user source text or identity.
var neverExported = map[string]bool{
	"email":         true,
	"file.content":  true,
	"request.body":  true,
	"response.body": true,
}

// attributeFilter wraps a span processor and drops attributes outside the
// exported namespaces before they reach it, so module sources and
// personal data stay in the process.
type attributeFilter struct {
	sdktrace.SpanProcessor

	logger  *slog.Logger
	dropped sync.Map
}

// NewAttributeFilter wraps next. When logger is non-nil each dropped key
// is logged once as a warning.
func NewAttributeFilter(next sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{SpanProcessor: next, logger: logger}
}

// OnEnd hands next a view of s with only exported attributes.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.SpanProcessor.OnEnd(filteredSpan{ReadOnlySpan: s, keep: f.exported})
}

func (f *attributeFilter) exported(key string) bool {
	ok := key == "error" || (!neverExported[key] && !strings.HasPrefix(key, "user.") && hasExportedPrefix(key))
	if !ok && f.logger != nil {
		if _, seen := f.dropped.LoadOrStore(key, struct{}{}); !seen {
			f.logger.Warn("span attribute dropped", "key", key)
		}
	}

	return ok
}

func hasExportedPrefix(key string) bool {
	for _, prefix := range exportedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// filteredSpan narrows Attributes of a finished span.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	keep func(string) bool
}

func (s filteredSpan) Attributes() []attribute.KeyValue {
	all := s.ReadOnlySpan.Attributes()
	out := make([]attribute.KeyValue, 0, len(all))

	for _, kv := range all {
		if s.keep(string(kv.Key)) {
			out = append(out, kv)
		}
	}

	return out
}
