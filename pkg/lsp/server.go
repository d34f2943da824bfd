// Package lsp provides a Language Server Protocol server that bundles the
// workspace on every edit and reports bundle failures as diagnostics.
package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/linker"
	"github.com/Sumatoshi-tech/jsbundle/pkg/loader"
	"github.com/Sumatoshi-tech/jsbundle/pkg/safeconv"
	"github.com/Sumatoshi-tech/jsbundle/pkg/version"
)

const (
	serverName       = "jsbundle"
	diagnosticSource = "jsbundle"
	publishMethod    = "textDocument/publishDiagnostics"
	entryOptionKey   = "entry"
)

// Options configures a Server.
type Options struct {
	// Entry is the file table key of the entry module. Clients may
	// override it with the "entry" initialization option.
	Entry string

	// Logger is an optional structured logger. Nil discards.
	Logger *slog.Logger

	// Loader controls the initial workspace scan.
	Loader loader.Options

	// Bundler options applied to the workspace bundler.
	Bundler []bundler.Option
}

// Server implements the jsbundle LSP server.
type Server struct {
	handler protocol.Handler
	opts    Options
	logger  *slog.Logger

	mu        sync.Mutex
	root      string
	bundle    *bundler.Bundler
	last      *bundler.Result
	diagnosed map[string]bool
}

// NewServer creates a new LSP server with default handlers.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	srv := &Server{
		opts:      opts,
		logger:    logger,
		diagnosed: make(map[string]bool),
	}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
		TextDocumentHover:     srv.hover,
	}

	return srv
}

// Run starts the LSP server on stdio.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	root := ""

	switch {
	case params.RootURI != nil:
		root = uriToPath(*params.RootURI)
	case params.RootPath != nil:
		root = *params.RootPath
	}

	entry := srv.opts.Entry
	if m, ok := params.InitializationOptions.(map[string]any); ok {
		if e, ok := m[entryOptionKey].(string); ok && e != "" {
			entry = e
		}
	}

	err := srv.open(root, entry)
	if err != nil {
		return nil, err
	}

	capabilities := srv.handler.CreateServerCapabilities()

	// Every change carries the whole document.
	openClose, includeText := true, true
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &includeText},
	}
	serverVersion := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &serverVersion,
		},
	}, nil
}

// open scans root into a fresh bundler for entry.
func (srv *Server) open(root, entry string) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.root = root
	srv.bundle = bundler.New(entry, srv.opts.Bundler...)

	if root == "" {
		return nil
	}

	files, err := loader.FromDir(root, srv.opts.Loader)
	if err != nil {
		return fmt.Errorf("scan workspace: %w", err)
	}

	for p, src := range files {
		srv.bundle.AddFile(p, src)
	}

	srv.logger.Info("workspace loaded", "root", root, "entry", entry, "files", len(files))

	return nil
}

func (srv *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	srv.rebuild(ctx)

	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	if srv.update(params.TextDocument.URI, params.TextDocument.Text) {
		srv.rebuild(ctx)
	}

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	for _, change := range params.ContentChanges {
		var text string

		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range != nil {
				continue
			}

			text = c.Text
		case map[string]any:
			t, ok := c["text"].(string)
			if !ok {
				continue
			}

			text = t
		default:
			continue
		}

		if srv.update(params.TextDocument.URI, text) {
			srv.rebuild(ctx)
		}
	}

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		srv.update(params.TextDocument.URI, *params.Text)
	}

	srv.rebuild(ctx)

	return nil
}

// didClose falls back to the file on disk, or drops the key when the
// buffer was never saved.
func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	key, ok := srv.key(params.TextDocument.URI)
	if !ok {
		return nil
	}

	data, err := os.ReadFile(uriToPath(params.TextDocument.URI))

	srv.mu.Lock()
	if err != nil {
		srv.bundle.RemoveFile(key)
	} else {
		srv.bundle.UpdateFile(key, string(data))
	}
	srv.mu.Unlock()

	srv.rebuild(ctx)

	return nil
}

// update stores text under the key of uri and reports whether uri belongs
// to the workspace.
func (srv *Server) update(uri, text string) bool {
	key, ok := srv.key(uri)
	if !ok {
		return false
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.bundle.UpdateFile(key, text)

	return true
}

// key maps a document URI to its file table key.
func (srv *Server) key(uri string) (string, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.bundle == nil {
		return "", false
	}

	p := uriToPath(uri)
	if srv.root == "" {
		return filepath.Base(p), true
	}

	rel, err := filepath.Rel(srv.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// uri maps a file table key back to a document URI.
func (srv *Server) uri(key string) string {
	return pathToURI(filepath.Join(srv.root, filepath.FromSlash(key)))
}

func pathToURI(p string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}

	return filepath.FromSlash(u.Path)
}

// rebuild bundles the workspace and replaces the published diagnostics.
func (srv *Server) rebuild(ctx *glsp.Context) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.bundle == nil {
		return
	}

	res, err := srv.bundle.Build(context.Background())

	byKey := make(map[string][]protocol.Diagnostic)

	if err != nil {
		srv.last = nil

		key, diag := errorDiagnostic(srv.bundle.Entry(), err)
		byKey[key] = append(byKey[key], diag)

		srv.logger.Debug("bundle failed", "kind", bundler.KindOf(err), "error", err)
	} else {
		srv.last = res

		for key, diag := range cycleDiagnostics(res) {
			byKey[key] = append(byKey[key], diag...)
		}
	}

	published := make(map[string]bool, len(byKey))

	for key, diags := range byKey {
		uri := srv.uri(key)
		published[uri] = true

		ctx.Notify(publishMethod, &protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: diags})
	}

	for uri := range srv.diagnosed {
		if !published[uri] {
			ctx.Notify(publishMethod, &protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: []protocol.Diagnostic{}})
		}
	}

	srv.diagnosed = published
}

func errorDiagnostic(entry string, err error) (string, protocol.Diagnostic) {
	key, line, col, ok := bundler.Position(err)
	if !ok {
		key, line, col = entry, 1, 1
	}

	return key, diagnostic(line, col, protocol.DiagnosticSeverityError,
		fmt.Sprintf("%s: %v", bundler.KindOf(err), err))
}

// cycleDiagnostics warns at each import that closes a cycle.
func cycleDiagnostics(res *bundler.Result) map[string][]protocol.Diagnostic {
	out := make(map[string][]protocol.Diagnostic)

	for _, c := range res.Cycles {
		line, col := 1, 1

		for _, e := range res.Graph.Edges {
			if e.From == c.From && e.To == c.To {
				line, col = e.Import.Line, e.Import.Column

				break
			}
		}

		out[c.From] = append(out[c.From], diagnostic(line, col, protocol.DiagnosticSeverityWarning,
			fmt.Sprintf("import of %s closes a cycle (%s); it is treated as already satisfied",
				c.To, strings.Join(bundler.CyclePath(res, c), " -> "))))
	}

	return out
}

func diagnostic(line, col int, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	start := protocol.Position{
		Line:      safeconv.ClampToUint32(line - 1),
		Character: safeconv.ClampToUint32(col - 1),
	}
	end := start
	end.Character++

	source := diagnosticSource

	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	key, ok := srv.key(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil // LSP protocol expects nil hover when no document found.
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	text, ok := srv.bundle.Source(key)
	if !ok || srv.last == nil {
		return nil, nil //nolint:nilnil // LSP protocol expects nil hover when nothing is known.
	}

	word := extractWordAtPosition(text, int(params.Position.Line), int(params.Position.Character))

	renamed, ok := srv.last.Renames[linker.ModuleKey{Module: key, Local: word}]
	if !ok {
		return nil, nil //nolint:nilnil // LSP protocol expects nil hover when no docs available.
	}

	value := fmt.Sprintf("`%s` is top-level in `%s`", word, key)
	if renamed != word {
		value = fmt.Sprintf("`%s` is emitted as `%s` in the bundle", word, renamed)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}, nil
}

// extractWordAtPosition returns the identifier at the given line/character in the text.
func extractWordAtPosition(text string, line, character int) string {
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		return ""
	}

	lineText := lines[line]
	if character > len(lineText) {
		character = len(lineText)
	}

	start := character

	for start > 0 && isWordChar(lineText[start-1]) {
		start--
	}

	end := character

	for end < len(lineText) && isWordChar(lineText[end]) {
		end++
	}

	return lineText[start:end]
}

func isWordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') || ch == '_' || ch == '$'
}
