package report

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// TextWriter renders a document as plain text.
type TextWriter struct {
	buf bytes.Buffer
}

// NewTextWriter returns an empty TextWriter.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

func (w *TextWriter) AddHeading(text string, level int) {
	w.separate()
	underline := "="
	if level > 1 {
		underline = "-"
	}
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(underline, max(utf8.RuneCountInString(text), 1)))
	w.buf.WriteByte('\n')
}

func (w *TextWriter) AddParagraph(text string) {
	w.separate()
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
}

// Bytes returns the rendered text so far.
func (w *TextWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *TextWriter) Save(path string) error {
	return writeFileAtomic(path, w.buf.Bytes())
}

func (w *TextWriter) separate() {
	if w.buf.Len() > 0 {
		w.buf.WriteByte('\n')
	}
}
