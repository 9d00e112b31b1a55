// Package globutil implements pathname expansion:
// matching a glob pattern against the file system, honouring nullglob,
// dotglob, and globstar, with segment matching fanned out across a small
// worker pool for patterns that touch multiple directories concurrently.
package globutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// Options controls the shopt-style toggles that affect matching.
type Options struct {
	NullGlob bool
	DotGlob  bool
	GlobStar bool
}

// HasMeta reports whether s contains any unescaped glob metacharacter.
func HasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[':
			return true
		case '\\':
			i++
		}
	}
	return false
}

// Expand matches pattern (an absolute or relative path pattern, possibly
// containing multiple `/`-separated segments) against the file system
// rooted at cwd. It returns matches sorted lexicographically, deduplicated,
// or the literal pattern if nothing matched and NullGlob is false.
func Expand(cwd, pattern string, opts Options) ([]string, error) {
	if !HasMeta(pattern) {
		return []string{pattern}, nil
	}

	abs := filepath.IsAbs(pattern)
	segments := strings.Split(pattern, "/")
	startIdx := 0
	root := cwd
	if abs {
		root = "/"
		startIdx = 1 // segments[0] is "" for a leading /
	}

	matches := matchSegments(root, segments[startIdx:], opts)
	sort.Strings(matches)
	matches = dedupe(matches)

	if len(matches) == 0 {
		if opts.NullGlob {
			return nil, nil
		}
		return []string{pattern}, nil
	}
	return matches, nil
}

func dedupe(in []string) []string {
	out := in[:0]
	var last string
	first := true
	for _, s := range in {
		if first || s != last {
			out = append(out, s)
			last = s
			first = false
		}
	}
	return out
}

// matchSegments recursively walks the pattern's path segments, expanding
// each one against the directory entries of the current accumulated
// prefixes. Sibling prefixes at each level are scanned concurrently via a
// bounded worker pool when there is more than one to examine.
func matchSegments(root string, segments []string, opts Options) []string {
	prefixes := []string{root}
	for i, seg := range segments {
		last := i == len(segments)-1
		if seg == "" {
			continue
		}
		if opts.GlobStar && seg == "**" {
			var next []string
			for _, p := range prefixes {
				next = append(next, walkGlobstar(p, opts)...)
			}
			prefixes = next
			continue
		}

		results := make([][]string, len(prefixes))
		p := pool.New().WithMaxGoroutines(workerCount())
		for idx, prefix := range prefixes {
			idx, prefix := idx, prefix
			p.Go(func() {
				results[idx] = matchOneSegment(prefix, seg, opts, last)
			})
		}
		p.Wait()

		var next []string
		for _, r := range results {
			next = append(next, r...)
		}
		prefixes = next
	}
	return prefixes
}

func workerCount() int {
	n := 4
	return n
}

// matchOneSegment lists dir's entries and keeps those whose name matches
// pattern, joining them onto dir to form the next level's prefixes.
func matchOneSegment(dir, pattern string, opts Options, isLeaf bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, ent := range entries {
		name := ent.Name()
		if !opts.DotGlob && strings.HasPrefix(name, ".") && !strings.HasPrefix(pattern, ".") {
			continue
		}
		ok, err := Match(pattern, name)
		if err != nil || !ok {
			continue
		}
		if !isLeaf && !ent.IsDir() {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

// walkGlobstar expands `**` as zero or more directory levels, returning
// every directory reachable from root (including root itself) for the
// next pattern segment to filter.
func walkGlobstar(root string, opts Options) []string {
	out := []string{root}
	var walk func(dir string)
	walk = func(dir string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, ent := range entries {
			if !ent.IsDir() {
				continue
			}
			if !opts.DotGlob && strings.HasPrefix(ent.Name(), ".") {
				continue
			}
			sub := filepath.Join(dir, ent.Name())
			out = append(out, sub)
			walk(sub)
		}
	}
	walk(root)
	return out
}

// Match reports whether name matches the single-segment glob pattern.
func Match(pattern, name string) (bool, error) {
	return matchGlob([]rune(pattern), []rune(name))
}

func matchGlob(pattern, name []rune) (bool, error) {
	var pi, ni int
	var starPi, starNi = -1, -1

	for ni < len(name) {
		if pi < len(pattern) {
			switch pattern[pi] {
			case '*':
				starPi = pi
				starNi = ni
				pi++
				continue
			case '?':
				pi++
				ni++
				continue
			case '[':
				end, ok, err := matchClass(pattern[pi:], name[ni])
				if err != nil {
					return false, err
				}
				if ok {
					pi += end
					ni++
					continue
				}
			default:
				if pattern[pi] == name[ni] {
					pi++
					ni++
					continue
				}
			}
		}
		if starPi >= 0 {
			starNi++
			ni = starNi
			pi = starPi + 1
			continue
		}
		return false, nil
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern), nil
}

// matchClass matches a `[...]` bracket expression at the start of pattern
// against r, returning the number of pattern runes consumed.
func matchClass(pattern []rune, r rune) (consumed int, matched bool, err error) {
	i := 1 // skip '['
	negate := false
	if i < len(pattern) && (pattern[i] == '!' || pattern[i] == '^') {
		negate = true
		i++
	}
	start := i
	found := false
	for i < len(pattern) && (pattern[i] != ']' || i == start) {
		if i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']' {
			if r >= pattern[i] && r <= pattern[i+2] {
				found = true
			}
			i += 3
			continue
		}
		if pattern[i] == r {
			found = true
		}
		i++
	}
	if i >= len(pattern) {
		return 0, false, errUnterminatedClass
	}
	i++ // consume ']'
	if negate {
		found = !found
	}
	return i, found, nil
}

var errUnterminatedClass = globErr("unterminated bracket expression")

type globErr string

func (e globErr) Error() string { return string(e) }
