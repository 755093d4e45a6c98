// Package loader turns source units into registered types. It is the default
// module loader of the discovery engine: PHP and Java units are parsed with
// tree-sitter, Risor units are executed, and YAML/TOML manifests are decoded.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/jward/plugscan/internal/logger"
	"github.com/jward/plugscan/internal/registry"
	"github.com/jward/plugscan/internal/store"
)

// ErrUnsupportedFormat is returned for units whose extension no enabled
// format handles.
var ErrUnsupportedFormat = errors.New("unsupported unit format")

// SyntaxError reports a unit that could not be parsed or executed.
type SyntaxError struct {
	Path   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Scope is an output sink with nestable capture scopes. When the configured
// output implements it, script units can open and close scopes.
type Scope interface {
	io.Writer
	Begin()
	End() bool
}

// Loader loads units into a registry. All loads are serialized.
type Loader struct {
	mu      sync.Mutex
	reg     *registry.Registry
	out     io.Writer
	formats []string
	log     *logger.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithOutput sets the writer that unit-level output goes to.
func WithOutput(w io.Writer) Option {
	return func(l *Loader) {
		l.out = w
	}
}

// WithFormats restricts loading to the given formats (see AllFormats).
func WithFormats(formats ...string) Option {
	return func(l *Loader) {
		l.formats = formats
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// New returns a Loader registering into reg.
func New(reg *registry.Registry, opts ...Option) *Loader {
	l := &Loader{
		reg:     reg,
		out:     io.Discard,
		formats: AllFormats,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAndRegister loads the unit at path and registers its types, returning
// their names. A unit that is already registered is not loaded again; its
// type names are returned as-is.
func (l *Loader) LoadAndRegister(ctx context.Context, path string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, ok, err := l.reg.UnitTypes(path)
	if err != nil {
		return nil, err
	}
	if ok {
		return names, nil
	}

	lang, ok := LanguageForFile(path)
	format := FormatForLanguage(lang)
	if !ok || !slices.Contains(l.formats, format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	u := &unit{path: path, lang: lang, content: content}
	var decls []registry.Declaration
	switch format {
	case FormatPHP:
		decls, err = l.parsePHP(ctx, u)
	case FormatJava:
		decls, err = l.parseJava(ctx, u)
	case FormatRisor:
		decls, err = l.runScript(ctx, u)
	case FormatManifest:
		decls, err = decodeManifest(u)
	}
	if err != nil {
		return nil, err
	}

	names, err = l.reg.Define(registry.Unit{
		Path:     path,
		Language: lang,
		Hash:     store.ContentHash(content),
		Decls:    decls,
	})
	if err != nil {
		return nil, err
	}
	l.log.WithUnit(path).Debugw("unit registered", "language", lang, "types", len(names))
	return names, nil
}

// unit is the raw input of one load.
type unit struct {
	path    string
	lang    string
	content []byte
}

func (u *unit) syntaxError(format string, args ...any) error {
	return &SyntaxError{Path: u.path, Reason: fmt.Sprintf(format, args...)}
}
