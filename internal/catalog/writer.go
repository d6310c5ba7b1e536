package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cometa-app/tscatalog/internal/apperr"
)

// DefaultVersion is written when a catalog carries no version.
const DefaultVersion = "2.1"

var (
	textEscaper = newEscaper()
	attrEscaper = newEscaper("\n", "&#xA;", "\t", "&#x9;")
)

// newEscaper escapes the XML specials the way lupdate does. \r is escaped so
// it survives the decoder's newline normalization.
func newEscaper(extra ...string) *strings.Replacer {
	pairs := []string{
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
		"\r", "&#xD;",
	}
	return strings.NewReplacer(append(pairs, extra...)...)
}

// isXMLChar reports whether r may appear in an XML 1.0 document.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func checkText(field, s string) *apperr.Error {
	if !utf8.ValidString(s) {
		return apperr.NewError(apperr.ErrValidation, "text is not valid UTF-8").WithContext("field", field)
	}
	for i, r := range s {
		if !isXMLChar(r) {
			return apperr.NewError(apperr.ErrValidation, "character not allowed in XML").
				WithContext("field", field).
				WithContext("char", fmt.Sprintf("%U", r)).
				WithContext("offset", i)
		}
	}
	return nil
}

// checkWritable rejects text that would produce a document the reader cannot
// load back.
func checkWritable(c *Catalog) error {
	for _, attr := range []struct{ field, value string }{
		{"version", c.Version},
		{"language", c.Language},
		{"sourcelanguage", c.SourceLanguage},
	} {
		if err := checkText(attr.field, attr.value); err != nil {
			return err
		}
	}
	for _, ctx := range c.Contexts {
		if err := checkText("name", ctx.Name); err != nil {
			return err
		}
		for _, msg := range ctx.Messages {
			fields := []struct{ field, value string }{
				{"source", msg.Source},
				{"comment", msg.Comment},
				{"translation", msg.Translation},
			}
			for _, loc := range msg.Locations {
				fields = append(fields, struct{ field, value string }{"location", loc.Filename})
			}
			for _, f := range fields {
				if err := checkText(f.field, f.value); err != nil {
					return err.
						WithContext("context", ctx.Name).
						WithContext("source", msg.Source)
				}
			}
		}
	}
	return nil
}

// Write serializes c as a TS document. Output is deterministic, so writing a
// parsed copy of the output reproduces it byte for byte. Text containing
// invalid UTF-8 or characters XML 1.0 forbids is rejected with ErrValidation
// before anything is written.
func Write(w io.Writer, c *Catalog) error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	if err := checkWritable(c); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)

	version := c.Version
	if version == "" {
		version = DefaultVersion
	}

	bw.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	bw.WriteString("<!DOCTYPE TS>\n")
	bw.WriteString(`<TS version="` + attrEscaper.Replace(version) + `"`)
	if c.Language != "" {
		bw.WriteString(` language="` + attrEscaper.Replace(c.Language) + `"`)
	}
	if c.SourceLanguage != "" {
		bw.WriteString(` sourcelanguage="` + attrEscaper.Replace(c.SourceLanguage) + `"`)
	}
	bw.WriteString(">\n")

	for _, ctx := range c.Contexts {
		bw.WriteString("<context>\n")
		bw.WriteString("    <name>" + textEscaper.Replace(ctx.Name) + "</name>\n")
		for _, msg := range ctx.Messages {
			writeMessage(bw, msg)
		}
		bw.WriteString("</context>\n")
	}
	bw.WriteString("</TS>\n")

	return bw.Flush()
}

func writeMessage(bw *bufio.Writer, msg Message) {
	bw.WriteString("    <message>\n")
	for _, loc := range msg.Locations {
		bw.WriteString(`        <location filename="` + attrEscaper.Replace(loc.Filename) + `"`)
		if loc.Line > 0 {
			bw.WriteString(` line="` + strconv.Itoa(loc.Line) + `"`)
		}
		bw.WriteString("/>\n")
	}
	bw.WriteString("        <source>" + textEscaper.Replace(msg.Source) + "</source>\n")
	if msg.Comment != "" {
		bw.WriteString("        <comment>" + textEscaper.Replace(msg.Comment) + "</comment>\n")
	}
	bw.WriteString("        <translation")
	if msg.Type != TypeFinished {
		bw.WriteString(` type="` + string(msg.Type) + `"`)
	}
	bw.WriteString(">" + textEscaper.Replace(msg.Translation) + "</translation>\n")
	bw.WriteString("    </message>\n")
}

// Marshal returns the serialized form of c.
func Marshal(c *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes c to path through a temporary file and rename.
func WriteFile(path string, c *Catalog) error {
	data, err := Marshal(c)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr.WithContext("path", path)
		}
		return apperr.WrapError(err, apperr.ErrFileWrite, "serialize catalog").WithContext("path", path)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.WrapError(err, apperr.ErrFileWrite, "create catalog directory").WithContext("path", path)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return apperr.WrapError(err, apperr.ErrFileWrite, "write catalog file").WithContext("path", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return apperr.WrapError(err, apperr.ErrFileWrite, "replace catalog file").WithContext("path", path)
	}
	return nil
}
