package builtins

// registry maps a builtin name to its implementation. Populated by
// init() in each responsibility file (nav.go, vars.go, ...) so that this
// file stays a pure index.
var registry = map[string]Func{}

func register(name string, fn Func) { registry[name] = fn }

// Lookup reports whether name is a builtin and returns its implementation.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names returns every registered builtin name, for `type`/`command -v`/
// completion.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
