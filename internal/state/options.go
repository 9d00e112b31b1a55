package state

// Option flag names settable via `set -o name` / `set +o name` or the
// short forms `-e`, `-u`, etc..
const (
	OptErrExit    = "errexit"
	OptNoUnset    = "nounset"
	OptXTrace     = "xtrace"
	OptPipefail   = "pipefail"
	OptNoGlob     = "noglob"
	OptNoClobber  = "noclobber"
	OptMonitor    = "monitor"
	OptAllExport  = "allexport"
	OptErrTrace   = "errtrace"
	OptFuncTrace  = "functrace"
	OptNoExec     = "noexec"
)

// Named option names settable via `shopt -s/-u name`.
const (
	OptExtGlob     = "extglob"
	OptGlobStar    = "globstar"
	OptNullGlob    = "nullglob"
	OptDotGlob     = "dotglob"
	OptAutoCd      = "autocd"
	OptCdSpell     = "cdspell"
	OptHistAppend  = "histappend"
	OptIgnoreDups  = "ignore_duplicates"
	OptCheckWinsize = "checkwinsize"
)

// shortFlagOpt maps the single-letter CLI/`set` flags to their long option
// name.
var shortFlagOpt = map[byte]string{
	'e': OptErrExit,
	'u': OptNoUnset,
	'x': OptXTrace,
	'n': OptNoExec,
}

// Options bundles the two toggle namespaces the shell exposes: POSIX `set`
// flags and bash-style `shopt` named options.
type Options struct {
	flags map[string]bool
	named map[string]bool
}

// DefaultOptions returns the option set an interactive shell starts with:
// monitor on (job control), everything else off.
func DefaultOptions() Options {
	return Options{
		flags: map[string]bool{OptMonitor: true},
		named: map[string]bool{},
	}
}

func (o *Options) ensure() {
	if o.flags == nil {
		o.flags = map[string]bool{}
	}
	if o.named == nil {
		o.named = map[string]bool{}
	}
}

func (o *Options) Flag(name string) bool { return o.flags[name] }
func (o *Options) Named(name string) bool { return o.named[name] }

func (o *Options) SetFlag(name string, on bool) {
	o.ensure()
	o.flags[name] = on
}

func (o *Options) SetNamed(name string, on bool) {
	o.ensure()
	o.named[name] = on
}

// SetShortFlag applies a single-letter `set` flag (e.g. 'e' for errexit).
// Reports false if the letter is not recognised.
func (o *Options) SetShortFlag(letter byte, on bool) bool {
	name, ok := shortFlagOpt[letter]
	if !ok {
		return false
	}
	o.SetFlag(name, on)
	return true
}

// Clone copies both toggle namespaces so a subshell's `set`/`shopt`
// changes never reach the parent's maps.
func (o Options) Clone() Options {
	cp := Options{flags: make(map[string]bool, len(o.flags)), named: make(map[string]bool, len(o.named))}
	for k, v := range o.flags {
		cp.flags[k] = v
	}
	for k, v := range o.named {
		cp.named[k] = v
	}
	return cp
}

// ActiveFlags returns a copy of every `set -o` flag with its on/off state.
// The map is unordered; callers sort as needed.
func (o *Options) ActiveFlags() map[string]bool {
	out := make(map[string]bool, len(o.flags))
	for k, v := range o.flags {
		out[k] = v
	}
	return out
}
