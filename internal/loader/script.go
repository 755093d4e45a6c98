package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	ros "github.com/risor-io/risor/os"

	"github.com/jward/plugscan/internal/registry"
)

// scriptRun is the state of one Risor unit execution. Types defined by the
// script are collected and registered together once the script completes.
type scriptRun struct {
	loader *Loader
	path   string
	decls  []registry.Declaration
	names  map[string]bool
}

func (l *Loader) runScript(ctx context.Context, u *unit) ([]registry.Declaration, error) {
	run := &scriptRun{loader: l, path: u.path, names: map[string]bool{}}

	// Default globals replace plain WithGlobal entries of the same name, so
	// host functions go in as overrides.
	opts := []risor.Option{risor.WithOS(newUnitOS(ctx, l.out))}
	for name, val := range run.globals() {
		opts = append(opts, risor.WithGlobalOverride(name, val))
	}
	if _, err := risor.Eval(ctx, string(u.content), opts...); err != nil {
		return nil, u.syntaxError("script: %v", err)
	}
	return run.decls, nil
}

// globals constructs the host functions exposed to unit scripts.
func (r *scriptRun) globals() map[string]any {
	echo := makeEchoFn(r.loader.out)
	return map[string]any{
		"unit_path":    r.path,
		"define_type":  r.makeDefineTypeFn(),
		"type_exists":  r.makeTypeExistsFn(),
		"echo":         echo,
		"print":        echo,
		"printf":       makePrintfFn(r.loader.out),
		"output_begin": makeOutputBeginFn(r.loader.out),
		"output_end":   makeOutputEndFn(r.loader.out),
	}
}

// makeDefineTypeFn creates the "define_type" host function.
//
// define_type({name, kind, abstract, extends, implements, uses, methods, private_constructor}) → name
func (r *scriptRun) makeDefineTypeFn() *object.Builtin {
	return object.NewBuiltin("define_type", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("define_type", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("define_type: %v", err)
		}

		d := registry.Declaration{
			Name:               getString(m, "name"),
			Kind:               getStringDefault(m, "kind", registry.KindClass),
			Abstract:           getBool(m, "abstract"),
			PrivateConstructor: getBool(m, "private_constructor"),
		}
		if d.Name == "" {
			return object.Errorf("define_type: name is required")
		}
		if r.names[d.Name] {
			return object.Errorf("define_type: %q already defined by this unit", d.Name)
		}
		for key, dst := range map[string]*[]string{
			"extends":    &d.Extends,
			"implements": &d.Implements,
			"uses":       &d.Uses,
			"methods":    &d.Methods,
		} {
			vals, err := getStringList(m, key)
			if err != nil {
				return object.Errorf("define_type: %s: %v", key, err)
			}
			*dst = vals
		}

		r.names[d.Name] = true
		r.decls = append(r.decls, d)
		return object.NewString(d.Name)
	})
}

// makeTypeExistsFn creates the "type_exists" host function. Types defined
// earlier by the same script count as existing.
//
// type_exists(name) → bool
func (r *scriptRun) makeTypeExistsFn() *object.Builtin {
	return object.NewBuiltin("type_exists", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_exists", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("type_exists: %v", err)
		}
		if r.names[name] {
			return object.True
		}
		ok, err := r.loader.reg.Has(name)
		if err != nil {
			return object.Errorf("type_exists: %v", err)
		}
		return object.NewBool(ok)
	})
}

// makeEchoFn creates the "echo" host function, which writes its arguments
// space-separated and newline-terminated to the unit output.
func makeEchoFn(out io.Writer) *object.Builtin {
	return object.NewBuiltin("echo", func(ctx context.Context, args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, arg := range args {
			if s, ok := arg.(*object.String); ok {
				parts[i] = s.Value()
			} else {
				parts[i] = arg.Inspect()
			}
		}
		if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
			return object.Errorf("echo: %v", err)
		}
		return object.Nil
	})
}

// makePrintfFn creates the "printf" host function. The format verbs follow
// Go's fmt package.
func makePrintfFn(out io.Writer) *object.Builtin {
	return object.NewBuiltin("printf", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("printf: takes 1 or more arguments (%d given)", len(args))
		}
		format, err := toString(args[0])
		if err != nil {
			return object.Errorf("printf: %v", err)
		}
		values := make([]any, 0, len(args)-1)
		for _, arg := range args[1:] {
			values = append(values, object.PrintableValue(arg))
		}
		if _, err := fmt.Fprintf(out, format, values...); err != nil {
			return object.Errorf("printf: %v", err)
		}
		return object.Nil
	})
}

func makeOutputBeginFn(out io.Writer) *object.Builtin {
	return object.NewBuiltin("output_begin", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("output_begin", 0, len(args))
		}
		if s, ok := out.(Scope); ok {
			s.Begin()
		}
		return object.Nil
	})
}

func makeOutputEndFn(out io.Writer) *object.Builtin {
	return object.NewBuiltin("output_end", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("output_end", 0, len(args))
		}
		if s, ok := out.(Scope); ok {
			return object.NewBool(s.End())
		}
		return object.False
	})
}

// unitOS is the host OS as seen by unit scripts, except that stdout is the
// unit output. Builtins like fmt.println and os.stdout.write land there.
type unitOS struct {
	*ros.SimpleOS
	stdout ros.File
}

func newUnitOS(ctx context.Context, out io.Writer) *unitOS {
	return &unitOS{SimpleOS: ros.NewSimpleOS(ctx), stdout: &unitStdout{w: out}}
}

func (o *unitOS) Stdout() ros.File { return o.stdout }

// unitStdout is a write-only Risor file over the unit output.
type unitStdout struct {
	ros.NilFile
	w io.Writer
}

func (f *unitStdout) Write(p []byte) (int, error) { return f.w.Write(p) }
