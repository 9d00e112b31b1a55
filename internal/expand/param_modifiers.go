package expand

import (
	"strconv"
	"strings"

	"github.com/home-lang/den/internal/globutil"
	"github.com/home-lang/den/internal/shellerr"
	"github.com/home-lang/den/internal/token"
)

// expandParamSegment resolves one parameter reference, applying its
// modifier if present.
func (e *Expander) expandParamSegment(seg token.Segment) (string, error) {
	value, isSet := e.lookupParam(seg.ParamName)

	switch seg.ParamMod {
	case "":
		if !isSet && e.Env.OptFlag("nounset") && !isSpecialName(seg.ParamName) {
			return "", shellerr.New(shellerr.KindExpansion, shellerr.StatusGenericFailure, "%s: unbound variable", seg.ParamName)
		}
		return value, nil

	case "#VAR":
		return strconv.Itoa(len([]rune(value))), nil

	case ":-":
		if !isSet || value == "" {
			return e.expandArgWord(seg.ParamArg)
		}
		return value, nil

	case ":=":
		if !isSet || value == "" {
			if e.Env.IsReadonly(seg.ParamName) || isSpecialName(seg.ParamName) {
				return "", shellerr.New(shellerr.KindExpansion, shellerr.StatusGenericFailure, "%s: cannot assign in this way", seg.ParamName)
			}
			def, err := e.expandArgWord(seg.ParamArg)
			if err != nil {
				return "", err
			}
			if err := e.Env.Set(seg.ParamName, def); err != nil {
				return "", shellerr.Wrap(shellerr.KindExpansion, shellerr.StatusGenericFailure, err)
			}
			return def, nil
		}
		return value, nil

	case ":?":
		if !isSet || value == "" {
			msg, _ := e.expandArgWord(seg.ParamArg)
			if msg == "" {
				msg = "parameter null or not set"
			}
			return "", shellerr.New(shellerr.KindExpansion, shellerr.StatusGenericFailure, "%s: %s", seg.ParamName, msg)
		}
		return value, nil

	case ":+":
		if isSet && value != "" {
			return e.expandArgWord(seg.ParamArg)
		}
		return "", nil

	case "#", "##", "%", "%%":
		pattern, err := e.expandArgWord(seg.ParamArg)
		if err != nil {
			return "", err
		}
		return trimPattern(value, pattern, seg.ParamMod), nil

	case "/", "//":
		return e.applyReplacement(value, seg.ParamArg, seg.ParamMod == "//")

	case ":":
		return e.applySubstring(value, seg.ParamArg)

	default:
		return value, nil
	}
}

func isSpecialName(name string) bool {
	switch name {
	case "?", "!", "#", "@", "*", "$", "_", "0":
		return true
	}
	return len(name) == 1 && name[0] >= '0' && name[0] <= '9'
}

// lookupParam resolves both ordinary variables and the special
// parameters ($, ?, !, #, @, *, 0, positional digits).
func (e *Expander) lookupParam(name string) (string, bool) {
	switch name {
	case "0":
		return e.Env.Arg0(), true
	case "?":
		return strconv.Itoa(e.Env.ExitStatus()), true
	case "!":
		return strconv.Itoa(e.Env.BackgroundPID()), true
	case "$":
		return strconv.Itoa(e.Env.ShellPID()), true
	case "#":
		return strconv.Itoa(len(e.Env.Positional())), true
	case "@", "*":
		return strings.Join(e.Env.Positional(), " "), true
	default:
		if len(name) > 0 && name[0] >= '0' && name[0] <= '9' {
			idx, err := strconv.Atoi(name)
			if err == nil {
				pos := e.Env.Positional()
				if idx >= 1 && idx <= len(pos) {
					return pos[idx-1], true
				}
				return "", false
			}
		}
		return e.Env.Get(name)
	}
}

// expandArgWord expands a parameter-modifier argument, which is itself
// subject to the usual parameter/command/arithmetic expansion (but never
// word splitting or globbing, since it denotes a single replacement
// value).
func (e *Expander) expandArgWord(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	return e.expandText(raw)
}

// trimPattern implements #, ##, %, %% (shortest/longest prefix/suffix
// trim against a glob pattern).
func trimPattern(value, pattern, mod string) string {
	runes := []rune(value)
	switch mod {
	case "#":
		for n := 1; n <= len(runes); n++ {
			if ok, _ := globutil.Match(pattern, string(runes[:n])); ok {
				return string(runes[n:])
			}
		}
	case "##":
		for n := len(runes); n >= 1; n-- {
			if ok, _ := globutil.Match(pattern, string(runes[:n])); ok {
				return string(runes[n:])
			}
		}
	case "%":
		for n := len(runes) - 1; n >= 0; n-- {
			if ok, _ := globutil.Match(pattern, string(runes[n:])); ok {
				return string(runes[:n])
			}
		}
	case "%%":
		for n := 0; n <= len(runes)-1; n++ {
			if ok, _ := globutil.Match(pattern, string(runes[n:])); ok {
				return string(runes[:n])
			}
		}
	}
	return value
}

// applyReplacement implements /pat/rep (first match) and //pat/rep (all
// matches). The expanded argument is split at its first `/`, escaped or
// not, into pat and rep.
func (e *Expander) applyReplacement(value, argRaw string, all bool) (string, error) {
	arg, err := e.expandText(argRaw)
	if err != nil {
		return "", err
	}
	idx := strings.IndexByte(arg, '/')
	var pat, rep string
	if idx < 0 {
		pat = arg
	} else {
		pat, rep = arg[:idx], arg[idx+1:]
	}
	if pat == "" {
		return value, nil
	}
	if !all {
		if idx := indexGlobMatch(value, pat); idx >= 0 {
			n := matchLen(value[idx:], pat)
			return value[:idx] + rep + value[idx+n:], nil
		}
		return value, nil
	}
	var b strings.Builder
	i := 0
	for i < len(value) {
		n := matchLenAt(value[i:], pat)
		if n > 0 {
			b.WriteString(rep)
			i += n
			continue
		}
		b.WriteByte(value[i])
		i++
	}
	return b.String(), nil
}

func indexGlobMatch(value, pat string) int {
	for i := 0; i <= len(value); i++ {
		if matchLenAt(value[i:], pat) > 0 {
			return i
		}
	}
	return -1
}

// matchLen/matchLenAt perform a best-effort literal-or-single-glob-token
// match length calculation sufficient for common `/pat/rep` usage; full
// POSIX longest-match glob substitution is not attempted.
func matchLen(s, pat string) int {
	if !globutil.HasMeta(pat) {
		if strings.HasPrefix(s, pat) {
			return len(pat)
		}
		return 0
	}
	for n := len(s); n >= 0; n-- {
		if ok, _ := globutil.Match(pat, s[:n]); ok {
			return n
		}
	}
	return 0
}

func matchLenAt(s, pat string) int {
	return matchLen(s, pat)
}

// applySubstring implements `:off:len` substring extraction with
// sign-aware offsets clamped to the string bounds.
func (e *Expander) applySubstring(value, argRaw string) (string, error) {
	arg, err := e.expandText(argRaw)
	if err != nil {
		return "", err
	}
	parts := strings.SplitN(arg, ":", 2)
	off, err := EvalArith(parts[0], e.Env)
	if err != nil {
		return "", err
	}
	runes := []rune(value)
	n := int64(len(runes))
	if off < 0 {
		off += n
		if off < 0 {
			off = 0
		}
	}
	if off > n {
		off = n
	}
	length := n - off
	if len(parts) == 2 {
		l, err := EvalArith(parts[1], e.Env)
		if err != nil {
			return "", err
		}
		if l < 0 {
			l += n - off
		}
		if l < 0 {
			l = 0
		}
		length = l
	}
	end := off + length
	if end > n {
		end = n
	}
	if off > end {
		return "", nil
	}
	return string(runes[off:end]), nil
}
