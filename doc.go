// Package plugscan discovers plugin types by capability. Given path
// patterns, it loads the matching source units into an explicit type
// registry and reports which types newly introduced by those units
// implement, extend, or inherit-or-equal a requested capability, restricted
// to types that can be instantiated directly.
//
// # Usage
//
//	e, err := plugscan.New(":memory:")
//	if err != nil { ... }
//	defer e.Close()
//
//	seq, err := e.DiscoverTypes(ctx, "plugins/*.php", contracts.RuleInterface, plugscan.RelImplements)
//	if err != nil { ... }
//	for name, err := range seq {
//		...
//	}
//
// # Units
//
// The default [ModuleLoader] dispatches on file extension:
//
//   - .php and .java units are parsed with tree-sitter. Namespaces, packages
//     and imports are resolved to fully qualified type ids.
//   - .risor units are executed in a Risor VM and call define_type.
//   - .yaml, .yml and .toml units are declarative manifests.
//
// A unit that fails to load is skipped. A unit that writes output while
// loading aborts discovery with an [OutputSideEffectError].
//
// # Registry
//
// The registry is append-only and backed by SQLite. Ancestor chains and
// capability closures are computed once, when a unit is registered, so the
// predicates of [QueryBuilder] are lookups. The contracts of package
// contracts are registered as builtin capabilities by [New].
package plugscan
