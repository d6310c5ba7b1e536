package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometa-app/tscatalog/internal/apperr"
)

func TestWrite_RoundTripPreservesText(t *testing.T) {
	original := loadFixture(t)

	out, err := Marshal(original)
	require.NoError(t, err)

	reparsed, err := ParseBytes(out)
	require.NoError(t, err)
	assert.Equal(t, original, reparsed)

	for _, e := range original.Entries() {
		assert.True(t, bytes.Contains(out, []byte(e.Source)), "source %q lost", e.Source)
		assert.True(t, bytes.Contains(out, []byte(e.Translation)), "translation %q lost", e.Translation)
	}
}

func TestWrite_IsFixedPoint(t *testing.T) {
	first, err := Marshal(loadFixture(t))
	require.NoError(t, err)

	reparsed, err := ParseBytes(first)
	require.NoError(t, err)
	second, err := Marshal(reparsed)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestWrite_Format(t *testing.T) {
	c := &Catalog{
		Language: "en_US",
		Contexts: []Context{{
			Name: "LoadFlightDialog",
			Messages: []Message{
				{
					Locations:   []Location{{Filename: "LoadFlightDialog.qml", Line: 95}},
					Source:      "Отмена",
					Translation: "Cancel",
				},
				{
					Source:      `Поле "A" <B> & 'C'`,
					Comment:     "line1\r\nline2",
					Translation: "",
					Type:        TypeUnfinished,
				},
			},
		}},
	}

	out, err := Marshal(c)
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE TS>
<TS version="2.1" language="en_US">
<context>
    <name>LoadFlightDialog</name>
    <message>
        <location filename="LoadFlightDialog.qml" line="95"/>
        <source>Отмена</source>
        <translation>Cancel</translation>
    </message>
    <message>
        <source>Поле &quot;A&quot; &lt;B&gt; &amp; &apos;C&apos;</source>
        <comment>line1&#xD;
line2</comment>
        <translation type="unfinished"></translation>
    </message>
</context>
</TS>
`
	assert.Equal(t, want, string(out))

	reparsed, err := ParseBytes(out)
	require.NoError(t, err)
	c.Version = DefaultVersion
	assert.Equal(t, c, reparsed)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "Cometa_en_EN.ts")
	require.NoError(t, WriteFile(path, loadFixture(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reread, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, loadFixture(t), reread)
}

func TestWrite_NilCatalog(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, nil))
}

func TestWrite_RejectsTextTheReaderCannotLoad(t *testing.T) {
	build := func(msg Message) *Catalog {
		return &Catalog{
			Language: "en_EN",
			Contexts: []Context{{Name: "MainWindow", Messages: []Message{msg}}},
		}
	}

	tests := []struct {
		name string
		c    *Catalog
	}{
		{"control char in source", build(Message{Source: "Подключить\x01", Translation: "Connect"})},
		{"invalid utf-8 in source", build(Message{Source: "abc\xff"})},
		{"NUL in translation", build(Message{Source: "Подключить", Translation: "Con\x00nect"})},
		{"control char in location", build(Message{Source: "Файл", Locations: []Location{{Filename: "main\x1b.qml"}}})},
		{"control char in context name", &Catalog{Contexts: []Context{{Name: "Main\x02Window"}}}},
		{"invalid utf-8 in language", &Catalog{Language: "en\xfe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, tt.c)
			require.Error(t, err)
			assert.True(t, apperr.IsErrorType(err, apperr.ErrValidation))
			assert.Zero(t, buf.Len())
		})
	}

	path := filepath.Join(t.TempDir(), "Cometa_en_EN.ts")
	err := WriteFile(path, tests[0].c)
	require.Error(t, err)
	assert.True(t, apperr.IsErrorType(err, apperr.ErrValidation))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWrite_AllowedWhitespaceSurvives(t *testing.T) {
	c := &Catalog{
		Language: "en_EN",
		Contexts: []Context{{
			Name:     "ReportTab",
			Messages: []Message{{Source: "Колонка\tЗначение\nИтог\r", Translation: "Column\tValue\nTotal\r"}},
		}},
	}
	out, err := Marshal(c)
	require.NoError(t, err)

	reparsed, err := ParseBytes(out)
	require.NoError(t, err)
	c.Version = DefaultVersion
	assert.Equal(t, c, reparsed)
}
