package plugscan

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/elliotchance/orderedmap/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jward/plugscan/internal/logger"
	"github.com/jward/plugscan/internal/store"
)

// pageSize bounds how many registered types a discovery sequence reads per
// registry query.
const pageSize = 128

// Query is one discovery request.
type Query struct {
	Patterns     []string
	Capability   string
	Relationship Relationship
}

// DiscoverTypes discovers with a single pattern. See Discover.
func (e *Engine) DiscoverTypes(ctx context.Context, pattern, capability string, rel Relationship) (iter.Seq2[string, error], error) {
	return e.Discover(ctx, Query{Patterns: []string{pattern}, Capability: capability, Relationship: rel})
}

// Discover loads every regular file matched by the query patterns and
// returns a sequence of the instantiable types defined by those files that
// satisfy the relationship with the capability.
//
// All loading happens before Discover returns. Units that fail to load are
// skipped. A unit that produces output aborts the call with an
// OutputSideEffectError; units loaded before it stay registered. The
// returned sequence reads the registry lazily and may be ranged over once.
func (e *Engine) Discover(ctx context.Context, q Query) (iter.Seq2[string, error], error) {
	if !q.Relationship.valid() {
		return nil, fmt.Errorf("discover: invalid relationship %v", q.Relationship)
	}
	ok, err := e.reg.Has(q.Capability)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !ok {
		return nil, &UnknownCapabilityError{Name: q.Capability}
	}
	log := e.log.WithCapability(q.Capability, q.Relationship.String())

	candidates, err := resolveCandidates(q.Patterns)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	provenance := orderedmap.NewOrderedMap[string, struct{}]()
	for el := candidates.Front(); el != nil; el = el.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := e.loadCandidate(ctx, el.Key, el.Value, log)
		if err != nil {
			return nil, err
		}
		if loaded {
			provenance.Set(el.Key, struct{}{})
		}
	}

	upto, err := e.reg.MaxTypeID()
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	log.Debugw("candidates loaded", "candidates", candidates.Len(), "loaded", provenance.Len())
	return e.sequence(ctx, q, provenance, upto), nil
}

// loadCandidate loads one unit inside an output fence. It reports whether
// the unit loaded; a load failure is not an error.
func (e *Engine) loadCandidate(ctx context.Context, path, pattern string, log *logger.Logger) (bool, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	before := e.out.Checkpoint()
	_, loadErr := e.loader.LoadAndRegister(ctx, path)
	after := e.out.Checkpoint()

	if loadErr != nil {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		log.WithUnit(path).Debugw("unit skipped", "error", loadErr)
		return false, nil
	}
	if before != after {
		log.WithUnit(path).Warnw("unit produced output while loading", "pattern", pattern)
		return false, &OutputSideEffectError{Path: path, Pattern: pattern, Before: before, After: after}
	}
	return true, nil
}

// resolveCandidates expands patterns into canonical paths of regular files,
// in first-match order. Each path maps to the first pattern that matched it.
func resolveCandidates(patterns []string) (*orderedmap.OrderedMap[string, string], error) {
	out := orderedmap.NewOrderedMap[string, string]()
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if base := filepath.Base(m); base == "." || base == ".." {
				continue
			}
			path, ok := canonicalFile(m)
			if !ok {
				continue
			}
			if _, seen := out.Get(path); !seen {
				out.Set(path, pattern)
			}
		}
	}
	return out, nil
}

// canonicalFile returns the absolute, symlink-free path of a regular file.
func canonicalFile(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return resolved, true
}

// sequence returns the single-pass result sequence of one discovery. Types
// registered after upto belong to later calls and are never reported.
func (e *Engine) sequence(ctx context.Context, q Query, provenance *orderedmap.OrderedMap[string, struct{}], upto int64) iter.Seq2[string, error] {
	var consumed atomic.Bool
	return func(yield func(string, error) bool) {
		if consumed.Swap(true) {
			yield("", ErrSequenceConsumed)
			return
		}
		var after int64
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			page, err := e.reg.TypesAfter(after, upto, pageSize)
			if err != nil {
				yield("", fmt.Errorf("discover: %w", err))
				return
			}
			if len(page) == 0 {
				return
			}
			for _, t := range page {
				after = t.ID
				if !t.Instantiable {
					continue
				}
				if _, ok := provenance.Get(t.UnitPath); !ok {
					continue
				}
				ok, err := satisfies(e.reg, t, q.Relationship, q.Capability)
				if err != nil {
					yield("", fmt.Errorf("discover: %w", err))
					return
				}
				if ok && !yield(t.Name, nil) {
					return
				}
			}
		}
	}
}

// satisfies evaluates rel between a registered type and target.
func satisfies(reg *Registry, t *store.Type, rel Relationship, target string) (bool, error) {
	switch rel {
	case RelImplements:
		return reg.HasCapability(t.ID, target)
	case RelExtends:
		return reg.HasAncestor(t.ID, target)
	case RelInheritsOrEquals:
		if t.Name == target {
			return true, nil
		}
		ok, err := reg.HasAncestor(t.ID, target)
		if err != nil || ok {
			return ok, err
		}
		return reg.HasCapability(t.ID, target)
	default:
		return false, fmt.Errorf("invalid relationship %v", rel)
	}
}

// DiscoverAll runs independent discoveries concurrently and collects each
// sequence. Results are indexed like queries. The first error cancels the
// remaining discoveries.
func (e *Engine) DiscoverAll(ctx context.Context, queries []Query) ([][]string, error) {
	results := make([][]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			seq, err := e.Discover(gctx, q)
			if err != nil {
				return err
			}
			names := []string{}
			for name, err := range seq {
				if err != nil {
					return err
				}
				names = append(names, name)
			}
			results[i] = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
