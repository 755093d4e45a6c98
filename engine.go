package plugscan

import (
	"context"
	"fmt"
	"sync"

	"github.com/jward/plugscan/contracts"
	"github.com/jward/plugscan/internal/loader"
	"github.com/jward/plugscan/internal/logger"
	"github.com/jward/plugscan/internal/output"
	"github.com/jward/plugscan/internal/registry"
	"github.com/jward/plugscan/internal/store"
)

// ModuleLoader loads one unit and registers the types it declares. It
// returns the names the unit contributed. Loading a unit that is already
// registered returns its names again without re-running it.
type ModuleLoader interface {
	LoadAndRegister(ctx context.Context, path string) ([]string, error)
}

// LoaderFactory builds the ModuleLoader for an Engine. Unit output must be
// written to out so discovery can detect it.
type LoaderFactory func(reg *Registry, out *Capture) ModuleLoader

// Engine owns the type registry and runs discovery against it.
type Engine struct {
	store   *store.Store
	reg     *registry.Registry
	out     *output.Capture
	loader  ModuleLoader
	log     *logger.Logger
	formats []string
	factory LoaderFactory

	// loadMu serializes checkpoint-load-checkpoint so concurrent discoveries
	// never see each other's output.
	loadMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoader replaces the default extension-dispatching loader.
func WithLoader(f LoaderFactory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithLogger sets the logger used for discovery and unit loading.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithOutput sets the capture that units write to. Defaults to a capture
// that discards.
func WithOutput(c *Capture) Option {
	return func(e *Engine) {
		e.out = c
	}
}

// WithFormats restricts which unit formats the default loader accepts.
// Units of other formats fail to load and are skipped by discovery.
func WithFormats(formats ...string) Option {
	return func(e *Engine) {
		e.formats = formats
	}
}

// New creates an Engine backed by a SQLite database at dbPath (":memory:"
// for an in-process registry) and registers the builtin capabilities.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("plugscan: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("plugscan: migrate: %w", err)
	}

	e := &Engine{
		store:   s,
		reg:     registry.New(s),
		formats: loader.AllFormats,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.NewNop()
	}
	if e.out == nil {
		e.out = output.New(nil)
	}

	if err := e.reg.DefineBuiltins(builtinDeclarations()); err != nil {
		s.Close()
		return nil, fmt.Errorf("plugscan: register builtins: %w", err)
	}

	if e.factory != nil {
		e.loader = e.factory(e.reg, e.out)
	} else {
		e.loader = loader.New(e.reg,
			loader.WithOutput(e.out),
			loader.WithFormats(e.formats...),
			loader.WithLogger(e.log),
		)
	}
	return e, nil
}

// builtinDeclarations turns the host contracts into interface declarations:
// the bare capabilities first, then their qualified names extending them.
func builtinDeclarations() []registry.Declaration {
	caps := contracts.Capabilities()
	decls := make([]registry.Declaration, 0, 2*len(caps))
	for _, c := range caps {
		decls = append(decls, registry.Declaration{
			Name:    c.Name,
			Kind:    registry.KindInterface,
			Methods: c.Methods,
		})
	}
	for _, c := range caps {
		decls = append(decls, registry.Declaration{
			Name:    c.Qualified,
			Kind:    registry.KindInterface,
			Extends: []string{c.Name},
		})
	}
	return decls
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Registry returns the type registry for direct access.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// Output returns the capture units write to.
func (e *Engine) Output() *Capture {
	return e.out
}

// Load loads and registers a single unit through the Engine's loader. The
// unit may write output; Load does not fence it. Regular files are
// registered under the same canonical path discovery uses.
func (e *Engine) Load(ctx context.Context, path string) ([]string, error) {
	if canonical, ok := canonicalFile(path); ok {
		path = canonical
	}
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.loader.LoadAndRegister(ctx, path)
}

// Lookup returns the descriptor of a registered type, or nil if unknown.
func (e *Engine) Lookup(name string) (*Descriptor, error) {
	return e.reg.Lookup(name)
}

// Units lists the registered units in registration order.
func (e *Engine) Units() ([]LoadedUnit, error) {
	return e.reg.Units()
}

// Snapshot captures the set of registered type names.
func (e *Engine) Snapshot() (Snapshot, error) {
	return e.reg.Snapshot()
}

// Query returns a QueryBuilder over the Engine's registry.
func (e *Engine) Query() *QueryBuilder {
	return NewQueryBuilder(e.reg)
}
