package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/cometa-app/tscatalog/internal/apperr"
)

// FileExt is the extension of Qt Linguist source catalogs.
const FileExt = ".ts"

type xmlTS struct {
	XMLName        xml.Name     `xml:"TS"`
	Version        string       `xml:"version,attr"`
	Language       string       `xml:"language,attr"`
	SourceLanguage string       `xml:"sourcelanguage,attr"`
	Contexts       []xmlContext `xml:"context"`
}

type xmlContext struct {
	Name     string       `xml:"name"`
	Messages []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	Locations   []xmlLocation  `xml:"location"`
	Source      string         `xml:"source"`
	Comment     string         `xml:"comment"`
	Translation xmlTranslation `xml:"translation"`
}

type xmlLocation struct {
	Filename string `xml:"filename,attr"`
	Line     string `xml:"line,attr"`
}

type xmlTranslation struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// Parse decodes a TS document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc xmlTS
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperr.WrapError(err, apperr.ErrParse, "decode TS document")
	}

	c := &Catalog{
		Version:        doc.Version,
		Language:       doc.Language,
		SourceLanguage: doc.SourceLanguage,
		Contexts:       make([]Context, 0, len(doc.Contexts)),
	}

	for _, xc := range doc.Contexts {
		ctx := Context{
			Name:     strings.TrimSpace(xc.Name),
			Messages: make([]Message, 0, len(xc.Messages)),
		}
		for i, xm := range xc.Messages {
			msg, err := convertMessage(xm)
			if err != nil {
				return nil, apperr.WrapError(err, apperr.ErrParse, "invalid message").
					WithContext("context", ctx.Name).
					WithContext("index", i)
			}
			ctx.Messages = append(ctx.Messages, msg)
		}
		c.Contexts = append(c.Contexts, ctx)
	}

	return c, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Catalog, error) {
	return Parse(bytes.NewReader(data))
}

// ReadFile loads a catalog from a .ts file.
func ReadFile(path string) (*Catalog, error) {
	if !strings.HasSuffix(strings.ToLower(path), FileExt) {
		return nil, apperr.NewError(apperr.ErrValidation, "catalog file must have .ts extension").
			WithContext("path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.WrapError(err, apperr.ErrFileNotFound, "catalog file does not exist").
				WithContext("path", path)
		}
		return nil, apperr.WrapError(err, apperr.ErrFileRead, "read catalog file").
			WithContext("path", path)
	}

	c, err := ParseBytes(data)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return c, nil
}

func convertMessage(xm xmlMessage) (Message, error) {
	msg := Message{
		Source:      xm.Source,
		Comment:     xm.Comment,
		Translation: xm.Translation.Text,
		Type:        TranslationType(xm.Translation.Type),
	}

	switch msg.Type {
	case TypeFinished, TypeUnfinished, TypeObsolete, TypeVanished:
	default:
		return Message{}, fmt.Errorf("unknown translation type %q", xm.Translation.Type)
	}

	for _, xl := range xm.Locations {
		loc := Location{Filename: xl.Filename}
		if s := strings.TrimSpace(xl.Line); s != "" {
			line, err := strconv.Atoi(s)
			if err != nil || line < 0 {
				return Message{}, fmt.Errorf("invalid location line %q in %s", xl.Line, xl.Filename)
			}
			loc.Line = line
		}
		msg.Locations = append(msg.Locations, loc)
	}

	return msg, nil
}
