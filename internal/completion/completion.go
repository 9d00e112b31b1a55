// Package completion implements the line editor's completion engine:
// classify the word under the cursor, gather candidates (scanning
// directories with a bounded worker pool), rank them, and return the
// result set for the line editor to cycle through.
package completion

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/home-lang/den/internal/builtins"
	"github.com/home-lang/den/internal/state"
)

// Kind classifies the word under the cursor.
type Kind int

const (
	KindCommand Kind = iota
	KindFile
	KindDirectory
	KindVariable
)

// Candidate is one completion result.
type Candidate struct {
	Text    string
	IsDir   bool
	history int // occurrences in history, used as a ranking tiebreaker
}

// Request describes what to complete: the full buffer, the cursor
// position, and a frequency table keyed by candidate text.
type Request struct {
	Buffer    string
	Cursor    int
	Frequency map[string]int
}

// Classify determines which Kind the word under cursor falls under.
// Directory-argument applies when the command word is
// `cd` or `pushd`.
func Classify(req Request) (Kind, string, int) {
	word, start := wordAt(req.Buffer, req.Cursor)
	if strings.HasPrefix(word, "$") {
		return KindVariable, word, start
	}
	if isFirstWord(req.Buffer, start) {
		return KindCommand, word, start
	}
	cmd := firstWord(req.Buffer)
	if cmd == "cd" || cmd == "pushd" {
		return KindDirectory, word, start
	}
	return KindFile, word, start
}

func wordAt(buf string, cursor int) (string, int) {
	if cursor > len(buf) {
		cursor = len(buf)
	}
	start := cursor
	for start > 0 && !isWordBoundary(buf[start-1]) {
		start--
	}
	return buf[start:cursor], start
}

func isWordBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '|' || c == ';' || c == '&'
}

func isFirstWord(buf string, start int) bool {
	prefix := strings.TrimRight(buf[:start], " \t")
	if prefix == "" {
		return true
	}
	last := prefix[len(prefix)-1]
	return last == '|' || last == ';' || last == '&' || last == '('
}

func firstWord(buf string) string {
	trimmed := strings.TrimLeft(buf, " \t")
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// Complete runs the full pipeline for one request against st, returning
// ranked candidates. Results are restricted to directories when Classify
// reports KindDirectory.
func Complete(st *state.ShellState, req Request) []Candidate {
	kind, word, _ := Classify(req)

	switch kind {
	case KindVariable:
		return rank(variableCandidates(st, word), word, req.Frequency)
	case KindCommand:
		return rank(commandCandidates(st, word), word, req.Frequency)
	default:
		cands := pathCandidates(word, kind == KindDirectory)
		return rank(cands, filepath.Base(word), req.Frequency)
	}
}

func variableCandidates(st *state.ShellState, word string) []Candidate {
	prefix := strings.TrimPrefix(word, "$")
	var out []Candidate
	for name := range st.Env {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Candidate{Text: "$" + name})
		}
	}
	for name := range st.ShellVars {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Candidate{Text: "$" + name})
		}
	}
	return out
}

func commandCandidates(st *state.ShellState, word string) []Candidate {
	seen := map[string]bool{}
	var out []Candidate
	add := func(name string) {
		if strings.HasPrefix(name, word) && !seen[name] {
			seen[name] = true
			out = append(out, Candidate{Text: name})
		}
	}
	for _, name := range builtins.Names() {
		add(name)
	}
	for name := range st.Functions {
		add(name)
	}
	for name := range st.Aliases {
		add(name)
	}

	path, ok := st.Get("PATH")
	if !ok {
		return out
	}
	dirs := splitPath(path)
	results := scanDirs(dirs, word, false)
	for _, c := range results {
		add(c.Text)
	}
	return out
}

// pathCandidates completes a filesystem path, handling the mid-word
// path-abbreviation rule: a slash-separated path where every segment is
// an unambiguous prefix of exactly one directory entry expands in full.
func pathCandidates(word string, dirsOnly bool) []Candidate {
	dir, base := filepath.Split(word)
	resolvedDir := abbreviateDir(dir)
	entries := scanDirs([]string{resolvedDir}, base, dirsOnly)
	for i := range entries {
		entries[i].Text = filepath.Join(resolvedDir, entries[i].Text)
		if entries[i].IsDir {
			entries[i].Text += "/"
		}
	}
	return entries
}

// abbreviateDir resolves each `/`-separated segment of dir: if a segment
// is an unambiguous prefix of exactly one entry in the directory resolved
// so far, it expands to that entry's full name; otherwise it is left
// untouched so the scan below falls back to prefix matching on the
// literal text.
func abbreviateDir(dir string) string {
	if dir == "" {
		return "."
	}
	abs := strings.HasPrefix(dir, "/")
	segments := strings.Split(strings.Trim(dir, "/"), "/")
	cur := "/"
	if !abs {
		cur = "."
	}
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return dir
		}
		var match string
		count := 0
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), seg) {
				match = e.Name()
				count++
			}
		}
		if count == 1 {
			cur = filepath.Join(cur, match)
		} else {
			cur = filepath.Join(cur, seg)
		}
	}
	return cur
}

// scanDirs scans each directory in dirs concurrently with a bounded
// worker pool, merging results under one mutex.
func scanDirs(dirs []string, prefix string, dirsOnly bool) []Candidate {
	var mu lockableSlice
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for _, d := range dirs {
		d := d
		g.Go(func() error {
			entries, err := os.ReadDir(d)
			if err != nil {
				return nil
			}
			var found []Candidate
			for _, e := range entries {
				if !strings.HasPrefix(e.Name(), prefix) {
					continue
				}
				if dirsOnly && !e.IsDir() {
					continue
				}
				found = append(found, Candidate{Text: e.Name(), IsDir: e.IsDir()})
			}
			mu.append(found...)
			return nil
		})
	}
	g.Wait()
	return mu.drain()
}

func splitPath(path string) []string {
	var out []string
	for _, p := range strings.Split(path, ":") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
