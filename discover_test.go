package plugscan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/plugscan/contracts"
	"github.com/jward/plugscan/internal/loader"
)

// countingLoader wraps the default loader and counts load attempts.
type countingLoader struct {
	next  ModuleLoader
	loads atomic.Int32
}

func (c *countingLoader) LoadAndRegister(ctx context.Context, path string) ([]string, error) {
	c.loads.Add(1)
	return c.next.LoadAndRegister(ctx, path)
}

func newCountingEngine(t *testing.T) (*Engine, *countingLoader) {
	t.Helper()
	counter := &countingLoader{}
	e := newTestEngine(t, WithLoader(func(reg *Registry, out *Capture) ModuleLoader {
		counter.next = loader.New(reg, loader.WithOutput(out))
		return counter
	}))
	return e, counter
}

const fooHandlerPHP = `<?php
class FooHandler implements \HandlerCapability
{
    public function handle() {}
}
`

func concreteHandler(name string) string {
	return "types:\n  - name: " + name + "\n    kind: class\n    implements: [HandlerCapability]\n    methods: [handle]\n"
}

func discover(t *testing.T, e *Engine, pattern, capability string, rel Relationship) []string {
	t.Helper()
	seq, err := e.DiscoverTypes(context.Background(), pattern, capability, rel)
	require.NoError(t, err)
	return collect(t, seq)
}

func TestDiscover_NoMatchesIsEmpty(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)

	names := discover(t, e, filepath.Join(t.TempDir(), "*.php"), "HandlerCapability", RelImplements)
	assert.Empty(t, names)
}

func TestDiscover_UnknownCapabilityLoadsNothing(t *testing.T) {
	t.Parallel()
	e, counter := newCountingEngine(t)
	dir := t.TempDir()
	writeUnit(t, dir, "Foo.php", fooHandlerPHP)

	_, err := e.DiscoverTypes(context.Background(), filepath.Join(dir, "*.php"), "NoSuchCapability", RelImplements)

	var unknown *UnknownCapabilityError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NoSuchCapability", unknown.Name)
	assert.Equal(t, int32(0), counter.loads.Load())
}

func TestDiscover_ExampleSkipsBrokenUnit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "plugins/Foo.php", fooHandlerPHP)
	writeUnit(t, dir, "plugins/broken.php", "<?php\nclass Broken implements \\Missing {}\n")

	names := discover(t, e, filepath.Join(dir, "plugins", "*.php"), "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"FooHandler"}, names)

	ok, err := e.Registry().Has("Broken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiscover_OnlyTypesFromMatchedUnits(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)

	elsewhere := writeUnit(t, t.TempDir(), "b.yaml", concreteHandler("B"))
	_, err := e.Load(context.Background(), elsewhere)
	require.NoError(t, err)

	dir := t.TempDir()
	writeUnit(t, dir, "a.yaml", concreteHandler("A"))

	names := discover(t, e, filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"A"}, names)
}

func TestDiscover_ExcludesNonInstantiable(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "types.yaml", `types:
  - name: AbstractHandler
    kind: class
    abstract: true
    implements: [HandlerCapability]
  - name: SingletonHandler
    kind: class
    implements: [HandlerCapability]
    methods: [handle]
    private_constructor: true
  - name: SubCapability
    kind: interface
    extends: [HandlerCapability]
  - name: HandlerTrait
    kind: trait
    methods: [handle]
  - name: ConcreteHandler
    kind: class
    implements: [HandlerCapability]
    uses: [HandlerTrait]
`)

	names := discover(t, e, filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"ConcreteHandler"}, names)
}

func TestDiscover_Relationships(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "base.yaml", concreteHandler("Plain"))
	writeUnit(t, dir, "child.yaml", `types:
  - name: ChildHandler
    kind: class
    extends: [BaseHandler]
`)
	pattern := filepath.Join(dir, "*.yaml")

	tests := []struct {
		name       string
		capability string
		rel        Relationship
		want       []string
	}{
		{"implements", "HandlerCapability", RelImplements, []string{"Plain", "ChildHandler"}},
		{"extends", "BaseHandler", RelExtends, []string{"ChildHandler"}},
		{"extends interface", "HandlerCapability", RelExtends, []string{}},
		{"inherits self", "Plain", RelInheritsOrEquals, []string{"Plain"}},
		{"inherits capability", "HandlerCapability", RelInheritsOrEquals, []string{"Plain", "ChildHandler"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := discover(t, e, pattern, tt.capability, tt.rel)
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestDiscover_OverlappingPatternsLoadOnce(t *testing.T) {
	t.Parallel()
	e, counter := newCountingEngine(t)
	withCapability(t, e)
	counter.loads.Store(0)
	dir := t.TempDir()
	writeUnit(t, dir, "a.yaml", concreteHandler("A"))

	seq, err := e.Discover(context.Background(), Query{
		Patterns:     []string{filepath.Join(dir, "*.yaml"), filepath.Join(dir, "a.*")},
		Capability:   "HandlerCapability",
		Relationship: RelImplements,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, collect(t, seq))
	assert.Equal(t, int32(1), counter.loads.Load())
}

func TestDiscover_RepeatIsStable(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "Foo.php", fooHandlerPHP)
	pattern := filepath.Join(dir, "*.php")

	first := discover(t, e, pattern, "HandlerCapability", RelImplements)
	second := discover(t, e, pattern, "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"FooHandler"}, first)
	assert.Equal(t, first, second)
}

func TestDiscover_RedefinitionSkipsLaterUnit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	first := writeUnit(t, dir, "a.yaml", concreteHandler("Dup"))
	writeUnit(t, dir, "b.yaml", concreteHandler("Dup"))

	names := discover(t, e, filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"Dup"}, names)

	d, err := e.Lookup("Dup")
	require.NoError(t, err)
	assert.Equal(t, first, d.DefiningPath)
}

func TestDiscover_IncompleteContractImplementationSkipped(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	writeUnit(t, dir, "Complete.php", `<?php
namespace App\Errors;

class Collector implements \ErrorAggregatorInterface
{
    public function add($error) {}
    public function count() { return 0; }
    public function clear() {}
}
`)
	writeUnit(t, dir, "Partial.php", `<?php
namespace App\Errors;

class Partial implements \ErrorAggregatorInterface
{
    public function add($error) {}
}
`)

	names := discover(t, e, filepath.Join(dir, "*.php"), contracts.ErrorAggregatorInterface, RelImplements)
	assert.Equal(t, []string{`App\Errors\Collector`}, names)
}

func TestDiscover_MixedFormats(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "a.java", "public class JavaHandler implements HandlerCapability {\n    public void handle() {}\n}\n")
	writeUnit(t, dir, "b.risor", `define_type({"name": "ScriptHandler", "implements": ["HandlerCapability"], "methods": ["handle"]})`)
	writeUnit(t, dir, "c.toml", "[[types]]\nname = \"TomlHandler\"\nkind = \"class\"\nimplements = [\"HandlerCapability\"]\nmethods = [\"handle\"]\n")
	writeUnit(t, dir, "d.txt", "not a unit")

	names := discover(t, e, filepath.Join(dir, "*"), "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"JavaHandler", "ScriptHandler", "TomlHandler"}, names)
}

func TestDiscover_SkipsDirectories(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "nested.yaml/a.yaml", concreteHandler("Nested"))
	writeUnit(t, dir, "top.yaml", concreteHandler("Top"))

	names := discover(t, e, filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	assert.Equal(t, []string{"Top"}, names)
}

func TestDiscover_InvalidPattern(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)

	_, err := e.DiscoverTypes(context.Background(), "[", "HandlerCapability", RelImplements)
	assert.ErrorIs(t, err, filepath.ErrBadPattern)
}

func TestDiscover_InvalidRelationship(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)

	_, err := e.DiscoverTypes(context.Background(), "*.yaml", "HandlerCapability", Relationship(42))
	assert.Error(t, err)
}

const defineNoisy = `define_type({"name": "Noisy", "implements": ["HandlerCapability"], "methods": ["handle"]})`

func TestDiscover_OutputAborts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		script string
	}{
		{"echo", "echo(\"loaded\")\n" + defineNoisy},
		{"print", "print(\"x\")\n" + defineNoisy},
		{"printf", "printf(\"leak\\n\")\n" + defineNoisy},
		{"fmt module", "fmt.println(\"leak\")\n" + defineNoisy},
		{"os stdout", "os.stdout.write(\"leak\\n\")\n" + defineNoisy},
		{"open scope", "output_begin()\n" + defineNoisy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t)
			withCapability(t, e)
			dir := t.TempDir()
			writeUnit(t, dir, "a.yaml", concreteHandler("Quiet"))
			noisy := writeUnit(t, dir, "b.risor", tt.script)
			pattern := filepath.Join(dir, "*")

			_, err := e.DiscoverTypes(context.Background(), pattern, "HandlerCapability", RelImplements)

			var side *OutputSideEffectError
			require.ErrorAs(t, err, &side)
			assert.Equal(t, noisy, side.Path)
			assert.Equal(t, pattern, side.Pattern)

			// Units loaded before the abort stay registered.
			ok, err := e.Registry().Has("Quiet")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestDiscover_QualifiedContractName(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	writeUnit(t, dir, "Required.php", `<?php
namespace Plugins\Rules;

use Limoncello\Validation\Contracts\RuleInterface;

class Required implements RuleInterface
{
    public function validate($input) {}
    public function isStateless() {}
    public function getParentRule() {}
    public function setParentRule($rule) {}
    public function getParameterName() {}
    public function setParameterName($name) {}
    public function onFinish($aggregator) {}
}
`)
	pattern := filepath.Join(dir, "*.php")

	want := []string{`Plugins\Rules\Required`}
	assert.Equal(t, want, discover(t, e, pattern, contracts.RuleInterface, RelImplements))
	assert.Equal(t, want, discover(t, e, pattern, `Limoncello\Validation\Contracts\RuleInterface`, RelImplements))
}

func TestDiscover_PHPInlineTextAborts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"banner", "banner\n" + fooHandlerPHP},
		{"blank lines", "\n\n" + fooHandlerPHP},
		{"trailing whitespace", fooHandlerPHP + "?>\n \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t)
			withCapability(t, e)
			dir := t.TempDir()
			writeUnit(t, dir, "banner.php", tt.src)

			_, err := e.DiscoverTypes(context.Background(), filepath.Join(dir, "*.php"), "HandlerCapability", RelImplements)
			var side *OutputSideEffectError
			assert.ErrorAs(t, err, &side)
		})
	}
}

func TestDiscover_PHPClosingTagNewlineIsSilent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "Foo.php", fooHandlerPHP+"?>\n")

	assert.Equal(t, []string{"FooHandler"}, discover(t, e, filepath.Join(dir, "*.php"), "HandlerCapability", RelImplements))
}

func TestDiscover_SecondIterationFails(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "a.yaml", concreteHandler("A"))

	seq, err := e.DiscoverTypes(context.Background(), filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, collect(t, seq))

	var errs []error
	for name, err := range seq {
		assert.Empty(t, name)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrSequenceConsumed)
}

func TestDiscover_EarlyBreak(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "a.yaml", concreteHandler("A"))
	writeUnit(t, dir, "b.yaml", concreteHandler("B"))

	seq, err := e.DiscoverTypes(context.Background(), filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	require.NoError(t, err)
	var got []string
	for name, err := range seq {
		require.NoError(t, err)
		got = append(got, name)
		break
	}
	assert.Equal(t, []string{"A"}, got)
}

func TestDiscover_PagesThroughRegistry(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()

	var want []string
	src := "types:\n"
	for i := range pageSize + 10 {
		name := fmt.Sprintf("Handler%03d", i)
		want = append(want, name)
		src += "  - {name: " + name + ", kind: class, implements: [HandlerCapability], methods: [handle]}\n"
	}
	writeUnit(t, dir, "many.yaml", src)

	names := discover(t, e, filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	assert.Equal(t, want, names)
}

func TestDiscover_CanceledContext(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "a.yaml", concreteHandler("A"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.DiscoverTypes(ctx, filepath.Join(dir, "*.yaml"), "HandlerCapability", RelImplements)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDiscoverAll_OverlappingQueries(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)
	dir := t.TempDir()
	writeUnit(t, dir, "a.yaml", concreteHandler("A"))
	writeUnit(t, dir, "b.yaml", concreteHandler("B"))
	writeUnit(t, dir, "c.yaml", "types:\n  - {name: C, kind: class, extends: [BaseHandler]}\n")

	all := filepath.Join(dir, "*.yaml")
	results, err := e.DiscoverAll(context.Background(), []Query{
		{Patterns: []string{all}, Capability: "HandlerCapability", Relationship: RelImplements},
		{Patterns: []string{filepath.Join(dir, "b.yaml"), all}, Capability: "HandlerCapability", Relationship: RelImplements},
		{Patterns: []string{all}, Capability: "BaseHandler", Relationship: RelExtends},
		{Patterns: []string{filepath.Join(dir, "none-*")}, Capability: "HandlerCapability", Relationship: RelImplements},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, results[0])
	assert.ElementsMatch(t, []string{"A", "B", "C"}, results[1])
	assert.Equal(t, []string{"C"}, results[2])
	assert.Empty(t, results[3])
}

func TestDiscoverAll_PropagatesError(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	withCapability(t, e)

	_, err := e.DiscoverAll(context.Background(), []Query{
		{Patterns: []string{"*.none"}, Capability: "HandlerCapability"},
		{Patterns: []string{"*.none"}, Capability: "Missing"},
	})
	var unknown *UnknownCapabilityError
	assert.ErrorAs(t, err, &unknown)
}
