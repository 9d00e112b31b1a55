package exec

import (
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/shellerr"
	"github.com/home-lang/den/internal/state"
	"github.com/home-lang/den/internal/token"
)

// withRedirections applies redirs in order, returning a derived Executor
// whose In/Out/Err reflect them and a cleanup func that closes any files
// opened along the way. Only fds 0/1/2 are
// wired to the Executor's own streams; a redirection naming a higher fd
// is still opened (so permission/noclobber errors surface) but has no
// addressable stream in this model, matching den's three-stream design.
func (ex *Executor) withRedirections(redirs []ast.Redirection) (*Executor, func(), error) {
	if len(redirs) == 0 {
		return ex, func() {}, nil
	}
	cur := *ex
	var opened []io.Closer

	cleanup := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			opened[i].Close()
		}
	}

	for _, r := range redirs {
		fd := r.FD
		if fd < 0 {
			fd = defaultFD(r.Op)
		}

		switch r.Op {
		case ast.RedirInput:
			target, err := ex.expander().Word(r.Target)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if conn, matched, derr := dialVirtual(target); matched {
				if derr != nil {
					cleanup()
					return nil, nil, derr
				}
				opened = append(opened, conn)
				assignStream(&cur, fd, conn, conn)
				continue
			}
			f, err := os.Open(target)
			if err != nil {
				cleanup()
				return nil, nil, shellerr.Wrap(shellerr.KindRedirection, 1, err)
			}
			opened = append(opened, f)
			assignStream(&cur, fd, f, nil)

		case ast.RedirOutputTruncate:
			target, err := ex.expander().Word(r.Target)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if conn, matched, derr := dialVirtual(target); matched {
				if derr != nil {
					cleanup()
					return nil, nil, derr
				}
				opened = append(opened, conn)
				assignStream(&cur, fd, conn, conn)
				continue
			}
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if ex.St.Options.Flag(state.OptNoClobber) {
				if _, statErr := os.Stat(target); statErr == nil {
					cleanup()
					return nil, nil, shellerr.New(shellerr.KindRedirection, 1, "%s: cannot overwrite existing file", target)
				}
				flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
			}
			f, err := os.OpenFile(target, flags, 0o644)
			if err != nil {
				cleanup()
				return nil, nil, shellerr.Wrap(shellerr.KindRedirection, 1, err)
			}
			opened = append(opened, f)
			assignStream(&cur, fd, nil, f)

		case ast.RedirOutputAppend:
			target, err := ex.expander().Word(r.Target)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if err != nil {
				cleanup()
				return nil, nil, shellerr.Wrap(shellerr.KindRedirection, 1, err)
			}
			opened = append(opened, f)
			assignStream(&cur, fd, nil, f)

		case ast.RedirReadWrite:
			target, err := ex.expander().Word(r.Target)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if conn, matched, derr := dialVirtual(target); matched {
				if derr != nil {
					cleanup()
					return nil, nil, derr
				}
				opened = append(opened, conn)
				assignStream(&cur, fd, conn, conn)
				continue
			}
			f, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE, 0o644)
			if err != nil {
				cleanup()
				return nil, nil, shellerr.Wrap(shellerr.KindRedirection, 1, err)
			}
			opened = append(opened, f)
			assignStream(&cur, fd, f, f)

		case ast.RedirInputDup, ast.RedirOutputDup:
			target, err := ex.expander().Word(r.Target)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if target == "-" {
				assignStream(&cur, fd, nil, io.Discard)
				continue
			}
			srcFD, err := strconv.Atoi(target)
			if err != nil {
				cleanup()
				return nil, nil, shellerr.New(shellerr.KindRedirection, 1, "%s: invalid fd duplication target", target)
			}
			r, w := streamOf(&cur, srcFD)
			assignStream(&cur, fd, r, w)

		case ast.RedirHereDoc, ast.RedirHereDocStrip:
			body := r.HereBody
			if !r.HereQuoted {
				expanded, err := ex.expandHereDocBody(body)
				if err != nil {
					cleanup()
					return nil, nil, err
				}
				body = expanded
			}
			pr, pw, err := os.Pipe()
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			go func() {
				io.WriteString(pw, body)
				pw.Close()
			}()
			opened = append(opened, pr)
			assignStream(&cur, 0, pr, nil)

		case ast.RedirHereString:
			text, err := ex.expander().Word(r.Target)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			pr, pw, err := os.Pipe()
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			go func() {
				io.WriteString(pw, text+"\n")
				pw.Close()
			}()
			opened = append(opened, pr)
			assignStream(&cur, 0, pr, nil)
		}
	}

	return &cur, cleanup, nil
}

// dialVirtual recognises the /dev/tcp/host/port and /dev/udp/host/port
// virtual paths and opens a socket instead of a file. matched is false for ordinary paths.
func dialVirtual(target string) (conn net.Conn, matched bool, err error) {
	for _, proto := range []string{"tcp", "udp"} {
		prefix := "/dev/" + proto + "/"
		if !strings.HasPrefix(target, prefix) {
			continue
		}
		rest := strings.SplitN(strings.TrimPrefix(target, prefix), "/", 2)
		if len(rest) != 2 || rest[0] == "" || rest[1] == "" {
			return nil, true, shellerr.New(shellerr.KindRedirection, 1, "%s: invalid host/port", target)
		}
		c, derr := net.Dial(proto, net.JoinHostPort(rest[0], rest[1]))
		if derr != nil {
			return nil, true, shellerr.Wrap(shellerr.KindRedirection, 1, derr)
		}
		return c, true, nil
	}
	return nil, false, nil
}

func defaultFD(op ast.RedirOp) int {
	switch op {
	case ast.RedirOutputTruncate, ast.RedirOutputAppend, ast.RedirOutputDup:
		return 1
	default:
		return 0
	}
}

func assignStream(ex *Executor, fd int, in io.Reader, out io.Writer) {
	switch fd {
	case 0:
		if in != nil {
			ex.In = in
		}
	case 1:
		if out != nil {
			ex.Out = out
		}
	case 2:
		if out != nil {
			ex.Err = out
		}
	}
}

func streamOf(ex *Executor, fd int) (io.Reader, io.Writer) {
	switch fd {
	case 0:
		return ex.In, nil
	case 1:
		return nil, ex.Out
	case 2:
		return nil, ex.Err
	default:
		return nil, nil
	}
}

// expandHereDocBody expands parameter/command/arithmetic references in
// an unquoted here-doc body without word splitting or globbing.
func (ex *Executor) expandHereDocBody(body string) (string, error) {
	w := ast.Word{Segments: []token.Segment{{Kind: token.SegDoubleQuoted, Text: body}}, Raw: body}
	return ex.expander().Word(w)
}
