package builtins

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

func init() {
	register("echo", echoBuiltin)
	register("printf", printfBuiltin)
	register("read", readBuiltin)
	register("mapfile", mapfileBuiltin)
	register("readarray", mapfileBuiltin)
}

// echoBuiltin supports -n (suppress trailing newline) and -e (interpret
// backslash escapes); -E disables -e again for parity with bash.
func echoBuiltin(ctx Context, args []string) (int, error) {
	rest := args[1:]
	newline := true
	interpret := false
	for len(rest) > 0 {
		switch rest[0] {
		case "-n":
			newline = false
		case "-e":
			interpret = true
		case "-E":
			interpret = false
		default:
			goto done
		}
		rest = rest[1:]
	}
done:
	text := strings.Join(rest, " ")
	if interpret {
		text = interpretEchoEscapes(text)
	}
	fmt.Fprint(ctx.Stdout(), text)
	if newline {
		fmt.Fprintln(ctx.Stdout())
	}
	return 0, nil
}

func interpretEchoEscapes(s string) string {
	var b strings.Builder
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		if r[i] != '\\' || i+1 >= len(r) {
			b.WriteRune(r[i])
			continue
		}
		i++
		switch r[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'c':
			return b.String() // \c suppresses remaining output entirely
		default:
			b.WriteByte('\\')
			b.WriteRune(r[i])
		}
	}
	return b.String()
}

// printfBuiltin implements a reduced but full-format-string-capable
// printf: %s %d %i %x %o %c %% plus width/precision passthrough to
// fmt.Sprintf, and \n-style escapes in the format string itself.
func printfBuiltin(ctx Context, args []string) (int, error) {
	if len(args) < 2 {
		fmt.Fprintln(ctx.Stderr(), "printf: usage: printf format [arguments]")
		return 2, nil
	}
	format := interpretEchoEscapes(args[1])
	values := args[2:]
	out, err := renderPrintf(format, values)
	if err != nil {
		fmt.Fprintf(ctx.Stderr(), "printf: %v\n", err)
		return 1, nil
	}
	fmt.Fprint(ctx.Stdout(), out)
	return 0, nil
}

func renderPrintf(format string, values []string) (string, error) {
	var b strings.Builder
	vi := 0
	nextValue := func() string {
		if vi < len(values) {
			v := values[vi]
			vi++
			return v
		}
		return ""
	}
	r := []rune(format)
	for i := 0; i < len(r); i++ {
		if r[i] != '%' || i+1 >= len(r) {
			b.WriteRune(r[i])
			continue
		}
		j := i + 1
		for j < len(r) && strings.ContainsRune("-+0123456789.", r[j]) {
			j++
		}
		if j >= len(r) {
			b.WriteRune(r[i])
			continue
		}
		spec := string(r[i: j+1])
		verb := r[j]
		switch verb {
		case '%':
			b.WriteByte('%')
		case 's':
			fmt.Fprintf(&b, spec, nextValue())
		case 'd', 'i':
			n, _ := strconv.ParseInt(strings.TrimSpace(nextValue()), 0, 64)
			fmt.Fprintf(&b, strings.Replace(spec, string(verb), "d", 1), n)
		case 'x', 'X', 'o':
			n, _ := strconv.ParseInt(strings.TrimSpace(nextValue()), 0, 64)
			fmt.Fprintf(&b, spec, n)
		case 'c':
			v := nextValue()
			if len(v) > 0 {
				b.WriteByte(v[0])
			}
		case 'f', 'e', 'g':
			n, _ := strconv.ParseFloat(strings.TrimSpace(nextValue()), 64)
			fmt.Fprintf(&b, spec, n)
		default:
			b.WriteString(spec)
		}
		i = j
	}
	return b.String(), nil
}

// readBuiltin supports -r (no backslash escaping), -p prompt, -n N
// (read at most N chars), -t timeout.
func readBuiltin(ctx Context, args []string) (int, error) {
	raw := false
	prompt := ""
	limit := -1
	timeout := time.Duration(0)
	var varNames []string

	rest := args[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case "-r":
			raw = true
			rest = rest[1:]
		case "-p":
			if len(rest) < 2 {
				return 2, fmt.Errorf("read: -p requires an argument")
			}
			prompt = rest[1]
			rest = rest[2:]
		case "-n":
			if len(rest) < 2 {
				return 2, fmt.Errorf("read: -n requires an argument")
			}
			n, _ := strconv.Atoi(rest[1])
			limit = n
			rest = rest[2:]
		case "-t":
			if len(rest) < 2 {
				return 2, fmt.Errorf("read: -t requires an argument")
			}
			secs, _ := strconv.ParseFloat(rest[1], 64)
			timeout = time.Duration(secs * float64(time.Second))
			rest = rest[2:]
		default:
			varNames = append(varNames, rest[0])
			rest = rest[1:]
		}
	}
	if len(varNames) == 0 {
		varNames = []string{"REPLY"}
	}
	if prompt != "" {
		fmt.Fprint(ctx.Stderr(), prompt)
	}

	line, ok := readLineWithTimeout(ctx.Stdin(), limit, timeout)
	if !ok {
		return 1, nil
	}
	if !raw {
		line = interpretEchoEscapes(line)
	}

	fields := strings.SplitN(line, " ", len(varNames))
	s := ctx.State()
	for i, name := range varNames {
		val := ""
		if i < len(fields) {
			val = strings.TrimSpace(fields[i])
		}
		s.Set(name, val)
	}
	return 0, nil
}

func readLineWithTimeout(in io.Reader, limit int, timeout time.Duration) (string, bool) {
	type result struct {
		line string
		ok   bool
	}
	ch := make(chan result, 1)
	go func() {
		reader := bufio.NewReader(in)
		if limit > 0 {
			buf := make([]byte, limit)
			n, err := io.ReadFull(reader, buf)
			ch <- result{string(buf[:n]), err == nil || n > 0}
			return
		}
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		ch <- result{line, err == nil || line != ""}
	}()
	if timeout <= 0 {
		r := <-ch
		return r.line, r.ok
	}
	select {
	case r := <-ch:
		return r.line, r.ok
	case <-time.After(timeout):
		return "", false
	}
}

// mapfileBuiltin reads lines from stdin into an indexed-array
// convention: <name>_COUNT holds the length and <name>_<i> each element,
// since ShellState stores only scalar strings (documented simplification,
// no true array type).
func mapfileBuiltin(ctx Context, args []string) (int, error) {
	name := "MAPFILE"
	if len(args) > 1 {
		name = args[len(args)-1]
	}
	s := ctx.State()
	scanner := bufio.NewScanner(ctx.Stdin())
	count := 0
	for scanner.Scan() {
		s.Set(fmt.Sprintf("%s_%d", name, count), scanner.Text())
		count++
	}
	s.Set(fmt.Sprintf("%s_COUNT", name), strconv.Itoa(count))
	return 0, nil
}
