package expand

import "strings"

// splitFields performs IFS word splitting over the
// unquoted runs produced by step 3. Quoted runs are never split; an
// unquoted run that is entirely whitespace-per-IFS vanishes. ifs is the
// effective separator set from Env.IFS: an empty string means splitting
// is disabled entirely (IFS explicitly set to ""), not "use the default"
// — Env.IFS already substitutes the default when IFS is unset.
func splitFields(pieces []fieldPiece, ifs string) []fieldPiece {
	var out []fieldPiece
	var pending strings.Builder
	hasQuoted := false
	flush := func() {
		if pending.Len() > 0 || hasQuoted {
			out = append(out, fieldPiece{text: pending.String(), quoted: hasQuoted})
			pending.Reset()
			hasQuoted = false
		}
	}

	for _, p := range pieces {
		if p.quoted {
			pending.WriteString(p.text)
			hasQuoted = true
			continue
		}
		start := 0
		for i, r := range p.text {
			if strings.ContainsRune(ifs, r) {
				pending.WriteString(p.text[start:i])
				flush()
				start = i + len(string(r))
			}
		}
		pending.WriteString(p.text[start:])
	}
	flush()
	if len(out) == 0 {
		return nil
	}
	return out
}
