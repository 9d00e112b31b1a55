package editor

import "strings"

// buffer is the editable line plus cursor position, kept as runes so
// multi-byte characters move and delete as single units.
type buffer struct {
	runes  []rune
	cursor int
}

func newBuffer(s string) buffer {
	return buffer{runes: []rune(s), cursor: len([]rune(s))}
}

func (b buffer) String() string { return string(b.runes) }

func (b *buffer) insert(s string) {
	r := []rune(s)
	b.runes = append(b.runes[:b.cursor], append(append([]rune{}, r...), b.runes[b.cursor:]...)...)
	b.cursor += len(r)
}

func (b *buffer) left() {
	if b.cursor > 0 {
		b.cursor--
	}
}

func (b *buffer) right() {
	if b.cursor < len(b.runes) {
		b.cursor++
	}
}

func (b *buffer) home() { b.cursor = 0 }
func (b *buffer) end()  { b.cursor = len(b.runes) }

func isWordRune(r rune) bool {
	return !strings.ContainsRune(" \t\n", r)
}

// wordLeft moves the cursor to the start of the previous word.
func (b *buffer) wordLeft() {
	i := b.cursor
	for i > 0 && !isWordRune(b.runes[i-1]) {
		i--
	}
	for i > 0 && isWordRune(b.runes[i-1]) {
		i--
	}
	b.cursor = i
}

// wordRight moves the cursor to the end of the next word.
func (b *buffer) wordRight() {
	i := b.cursor
	n := len(b.runes)
	for i < n && !isWordRune(b.runes[i]) {
		i++
	}
	for i < n && isWordRune(b.runes[i]) {
		i++
	}
	b.cursor = i
}

// backspace deletes the rune before cursor, returning it (empty if none).
func (b *buffer) backspace() string {
	if b.cursor == 0 {
		return ""
	}
	r := string(b.runes[b.cursor-1])
	b.runes = append(b.runes[:b.cursor-1], b.runes[b.cursor:]...)
	b.cursor--
	return r
}

// deleteForward deletes the rune at cursor, returning it.
func (b *buffer) deleteForward() string {
	if b.cursor >= len(b.runes) {
		return ""
	}
	r := string(b.runes[b.cursor])
	b.runes = append(b.runes[:b.cursor], b.runes[b.cursor+1:]...)
	return r
}

// killToEnd removes from cursor to end of line, returning the killed text.
func (b *buffer) killToEnd() string {
	killed := string(b.runes[b.cursor:])
	b.runes = b.runes[:b.cursor]
	return killed
}

// killToStart removes from start of line to cursor, returning the killed
// text.
func (b *buffer) killToStart() string {
	killed := string(b.runes[:b.cursor])
	b.runes = b.runes[b.cursor:]
	b.cursor = 0
	return killed
}

// killWordForward removes the word after the cursor, returning it.
func (b *buffer) killWordForward() string {
	start := b.cursor
	b.wordRight()
	killed := string(b.runes[start:b.cursor])
	b.runes = append(b.runes[:start], b.runes[b.cursor:]...)
	b.cursor = start
	return killed
}

// transpose swaps the two characters around the cursor; at end of line it
// swaps the last two, matching readline's ctrl+t.
func (b *buffer) transpose() {
	n := len(b.runes)
	if n < 2 {
		return
	}
	i := b.cursor
	if i >= n {
		i = n - 1
	}
	if i == 0 {
		i = 1
	}
	b.runes[i-1], b.runes[i] = b.runes[i], b.runes[i-1]
	if b.cursor < n {
		b.cursor = i + 1
	}
}

// killWordBackward removes the word before the cursor, returning it.
func (b *buffer) killWordBackward() string {
	start := b.cursor
	b.wordLeft()
	killed := string(b.runes[b.cursor:start])
	b.runes = append(b.runes[:b.cursor], b.runes[start:]...)
	return killed
}

func (b buffer) clone() buffer {
	cp := buffer{runes: make([]rune, len(b.runes)), cursor: b.cursor}
	copy(cp.runes, b.runes)
	return cp
}
