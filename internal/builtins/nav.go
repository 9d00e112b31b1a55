package builtins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/home-lang/den/internal/state"
)

func init() {
	register("cd", cdBuiltin)
	register("pwd", pwdBuiltin)
	register("pushd", pushdBuiltin)
	register("popd", popdBuiltin)
	register("dirs", dirsBuiltin)
}

// cdBuiltin implements navigation with CDPATH search, `-` for OLDPWD, and
// an optional spellcheck pass.
func cdBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	target := ""
	if len(args) > 1 {
		target = args[1]
	}

	switch target {
	case "":
		if home, ok := s.Get("HOME"); ok {
			target = home
		} else {
			target = "/"
		}
	case "-":
		target = s.OldPWD()
		fmt.Fprintln(ctx.Stdout(), target)
	}

	resolved, err := resolveCdTarget(s, target)
	if err != nil {
		fmt.Fprintf(ctx.Stderr(), "cd: %v\n", err)
		return 1, nil
	}

	if err := os.Chdir(resolved); err != nil {
		fmt.Fprintf(ctx.Stderr(), "cd: %s: %v\n", resolved, err)
		return 1, nil
	}
	s.OldPwd = s.Cwd
	s.Cwd = resolved
	s.Env["OLDPWD"] = s.OldPwd
	s.Env["PWD"] = s.Cwd
	return 0, nil
}

// resolveCdTarget tries target as-is, then under each CDPATH entry, then
// (if cdspell is on) against a corrected spelling found by spellFix.
func resolveCdTarget(s *state.ShellState, target string) (string, error) {
	if filepath.IsAbs(target) {
		if isDir(target) {
			return target, nil
		}
	} else {
		candidate := filepath.Join(s.Cwd, target)
		if isDir(candidate) {
			return candidate, nil
		}
		if cdpath, ok := s.Get("CDPATH"); ok {
			for _, dir := range strings.Split(cdpath, ":") {
				if dir == "" {
					continue
				}
				candidate := filepath.Join(dir, target)
				if isDir(candidate) {
					return candidate, nil
				}
			}
		}
	}
	if s.Options.Named("cdspell") {
		if fixed, ok := spellFix(s.Cwd, target); ok {
			return fixed, nil
		}
	}
	return "", fmt.Errorf("%s: No such file or directory", target)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// spellFix matches each path segment case-insensitively against the
// entries of the directory reached so far; transposed, missing, or extra
// letters are not corrected.
func spellFix(cwd, target string) (string, bool) {
	segs := strings.Split(target, "/")
	cur := cwd
	if strings.HasPrefix(target, "/") {
		cur = "/"
		segs = segs[1:]
	}
	for _, seg := range segs {
		if seg == "" || seg == "." {
			continue
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", false
		}
		matched := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), seg) {
				matched = e.Name()
				break
			}
		}
		if matched == "" {
			return "", false
		}
		cur = filepath.Join(cur, matched)
	}
	if isDir(cur) {
		return cur, true
	}
	return "", false
}

func pwdBuiltin(ctx Context, args []string) (int, error) {
	fmt.Fprintln(ctx.Stdout(), ctx.State().Cwd)
	return 0, nil
}

func pushdBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	target := s.Cwd
	if len(args) > 1 {
		target = args[1]
	}
	resolved, err := resolveCdTarget(s, target)
	if err != nil {
		fmt.Fprintf(ctx.Stderr(), "pushd: %v\n", err)
		return 1, nil
	}
	if err := os.Chdir(resolved); err != nil {
		fmt.Fprintf(ctx.Stderr(), "pushd: %s: %v\n", resolved, err)
		return 1, nil
	}
	s.DirStack = append([]string{s.Cwd}, s.DirStack...)
	s.OldPwd = s.Cwd
	s.Cwd = resolved
	s.Env["PWD"] = s.Cwd
	printDirs(ctx, s)
	return 0, nil
}

func popdBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(s.DirStack) == 0 {
		fmt.Fprintln(ctx.Stderr(), "popd: directory stack empty")
		return 1, nil
	}
	top := s.DirStack[0]
	s.DirStack = s.DirStack[1:]
	if err := os.Chdir(top); err != nil {
		fmt.Fprintf(ctx.Stderr(), "popd: %s: %v\n", top, err)
		return 1, nil
	}
	s.OldPwd = s.Cwd
	s.Cwd = top
	s.Env["PWD"] = s.Cwd
	printDirs(ctx, s)
	return 0, nil
}

func dirsBuiltin(ctx Context, args []string) (int, error) {
	printDirs(ctx, ctx.State())
	return 0, nil
}

func printDirs(ctx Context, s *state.ShellState) {
	parts := append([]string{s.Cwd}, s.DirStack...)
	fmt.Fprintln(ctx.Stdout(), strings.Join(parts, " "))
}
