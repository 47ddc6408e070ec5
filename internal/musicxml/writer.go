package musicxml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// xmlWriter emits compact, deterministic markup. Attributes are written in
// the order given.
type xmlWriter struct {
	b strings.Builder
}

func (w *xmlWriter) raw(s string) { w.b.WriteString(s) }

func (w *xmlWriter) escape(s string) {
	// strings.Builder never fails
	_ = xml.EscapeText(&w.b, []byte(s))
}

func (w *xmlWriter) startTag(name string, attrs []string) {
	w.b.WriteByte('<')
	w.b.WriteString(name)
	for i := 0; i+1 < len(attrs); i += 2 {
		w.b.WriteByte(' ')
		w.b.WriteString(attrs[i])
		w.b.WriteString(`="`)
		w.escape(attrs[i+1])
		w.b.WriteByte('"')
	}
}

// open writes a start tag and returns name so callers can defer the close.
func (w *xmlWriter) open(name string, attrs ...string) string {
	w.startTag(name, attrs)
	w.b.WriteByte('>')
	return name
}

func (w *xmlWriter) close(name string) {
	w.b.WriteString("</")
	w.b.WriteString(name)
	w.b.WriteByte('>')
}

func (w *xmlWriter) empty(name string, attrs ...string) {
	w.startTag(name, attrs)
	w.b.WriteString("/>")
}

func (w *xmlWriter) text(name, content string, attrs ...string) {
	w.open(name, attrs...)
	w.escape(content)
	w.close(name)
}

func (w *xmlWriter) int(name string, v int) {
	w.text(name, strconv.Itoa(v))
}

func (w *xmlWriter) String() string { return w.b.String() }
