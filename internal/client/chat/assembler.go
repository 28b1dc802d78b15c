package chat

import (
	"strings"
	"unicode/utf8"
)

// Assembler накапливает чанки ответа в порядке прихода.
// Если многобайтовый символ разрезан между чанками, его начало
// придерживается до прихода остатка, так что текст всегда валиден.
type Assembler struct {
	buf     strings.Builder
	pending []byte
}

// Write appends chunk and returns the full text accumulated so far.
func (a *Assembler) Write(chunk []byte) string {
	data := chunk
	if len(a.pending) > 0 {
		data = append(a.pending, chunk...)
	}

	cut := incompleteTail(data)
	a.buf.Write(data[:cut])
	a.pending = append([]byte(nil), data[cut:]...)

	return a.buf.String()
}

// Flush is called at end of stream: held bytes that never became a full
// rune are written as is.
func (a *Assembler) Flush() string {
	if len(a.pending) > 0 {
		a.buf.Write(a.pending)
		a.pending = nil
	}
	return a.buf.String()
}

// String returns the text without held bytes.
func (a *Assembler) String() string {
	return a.buf.String()
}

// Pending reports whether bytes of an incomplete rune are held back.
func (a *Assembler) Pending() bool {
	return len(a.pending) > 0
}

// incompleteTail возвращает позицию, с которой начинается незавершенный
// символ в конце data, или len(data)
func incompleteTail(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				return i
			}
			break
		}
	}
	return len(data)
}
