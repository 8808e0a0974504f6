package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const odtMimeType = "application/vnd.oasis.opendocument.text"

const odtManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
 <manifest:file-entry manifest:full-path="/" manifest:media-type="application/vnd.oasis.opendocument.text"/>
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
</manifest:manifest>
`

const odtContentHead = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" office:version="1.2">
<office:body>
<office:text>
`

const odtContentTail = `</office:text>
</office:body>
</office:document-content>
`

// ODTWriter renders a document as an OpenDocument text file.
type ODTWriter struct {
	body strings.Builder
}

// NewODTWriter returns an empty ODTWriter.
func NewODTWriter() *ODTWriter {
	return &ODTWriter{}
}

func (w *ODTWriter) AddHeading(text string, level int) {
	if level < 1 {
		level = 1
	}
	fmt.Fprintf(&w.body, `<text:h text:style-name="Heading_20_%d" text:outline-level="%d">`, level, level)
	w.writeEscaped(text)
	w.body.WriteString("</text:h>\n")
}

func (w *ODTWriter) AddParagraph(text string) {
	w.body.WriteString("<text:p>")
	w.writeEscaped(text)
	w.body.WriteString("</text:p>\n")
}

// Content returns the content.xml document built so far.
func (w *ODTWriter) Content() string {
	return odtContentHead + w.body.String() + odtContentTail
}

// Bytes packages the document as an ODT archive.
func (w *ODTWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// The mimetype entry must come first and be stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	if _, err := mt.Write([]byte(odtMimeType)); err != nil {
		return nil, err
	}

	entries := []struct {
		name string
		data string
	}{
		{"META-INF/manifest.xml", odtManifest},
		{"content.xml", w.Content()},
	}
	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(e.data)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *ODTWriter) Save(path string) error {
	data, err := w.Bytes()
	if err != nil {
		return fmt.Errorf("package odt: %w", err)
	}
	return writeFileAtomic(path, data)
}

func (w *ODTWriter) writeEscaped(text string) {
	_ = xml.EscapeText(&w.body, []byte(text))
}
