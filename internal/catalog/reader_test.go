package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "testdata/Cometa_en_EN.ts"

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	c, err := ReadFile(fixturePath)
	require.NoError(t, err)
	return c
}

func TestReadFile_Fixture(t *testing.T) {
	c := loadFixture(t)

	assert.Equal(t, "2.1", c.Version)
	assert.Equal(t, "en_US", c.Language)

	names := make([]string, 0, len(c.Contexts))
	for _, ctx := range c.Contexts {
		names = append(names, ctx.Name)
	}
	assert.Equal(t, []string{
		"MainWindow", "DataDisplayWindow", "ReportTab",
		"LoadFlightDialog", "MapWidget", "Settings",
	}, names)
	assert.Equal(t, 34, c.MessageCount())

	mainWindow, ok := c.Context("MainWindow")
	require.True(t, ok)
	require.Len(t, mainWindow.Messages, 7)
	assert.Equal(t, Message{
		Locations:   []Location{{Filename: "mainwindow.cpp", Line: 166}},
		Source:      "Подключить",
		Translation: "Connect",
	}, mainWindow.Messages[4])
}

func TestEntries_SettingsShareOneLine(t *testing.T) {
	c := loadFixture(t)

	var settings []Entry
	for _, e := range c.Entries() {
		if e.Context == "Settings" {
			settings = append(settings, e)
		}
	}
	require.Len(t, settings, 6)
	for _, e := range settings {
		assert.Equal(t, "settings.cpp", e.OriginFile)
		assert.Equal(t, 25, e.OriginLine)
		assert.NotEmpty(t, e.Source)
	}
}

func TestParse_FullMessage(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE TS>
<TS version="2.1" language="de_DE" sourcelanguage="ru_RU">
<context>
    <name> MapWidget </name>
    <message>
        <location filename="MapWidget.qml" line="28"/>
        <location filename="MapWidget.qml" line="40"/>
        <source>Показать &amp; скрыть</source>
        <comment>toolbar</comment>
        <translation type="unfinished">Zeigen &amp; verbergen</translation>
    </message>
    <message>
        <location filename="MapWidget.qml"/>
        <source>Очистить карту</source>
        <translation type="obsolete">Karte leeren</translation>
    </message>
</context>
</TS>`

	c, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "ru_RU", c.SourceLanguage)
	require.Len(t, c.Contexts, 1)
	ctx := c.Contexts[0]
	assert.Equal(t, "MapWidget", ctx.Name)
	require.Len(t, ctx.Messages, 2)

	first := ctx.Messages[0]
	assert.Equal(t, "Показать & скрыть", first.Source)
	assert.Equal(t, "toolbar", first.Comment)
	assert.Equal(t, "Zeigen & verbergen", first.Translation)
	assert.Equal(t, TypeUnfinished, first.Type)
	assert.Equal(t, []Location{
		{Filename: "MapWidget.qml", Line: 28},
		{Filename: "MapWidget.qml", Line: 40},
	}, first.Locations)

	second := ctx.Messages[1]
	assert.Equal(t, TypeObsolete, second.Type)
	assert.Equal(t, 0, second.Locations[0].Line)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "this is not a catalog"},
		{"wrong root", `<resources><string name="a">b</string></resources>`},
		{"truncated", `<TS version="2.1"><context><name>MainWindow</name>`},
		{"bad line", `<TS><context><name>A</name><message><location filename="a.cpp" line="x"/><source>s</source><translation>t</translation></message></context></TS>`},
		{"bad type", `<TS><context><name>A</name><message><source>s</source><translation type="done">t</translation></message></context></TS>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, apperr.IsErrorType(err, apperr.ErrParse), err.Error())
		})
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.ts"))
	assert.True(t, apperr.IsErrorType(err, apperr.ErrFileNotFound))

	_, err = ReadFile(filepath.Join(dir, "catalog.json"))
	assert.True(t, apperr.IsErrorType(err, apperr.ErrValidation))

	broken := filepath.Join(dir, "broken.ts")
	require.NoError(t, os.WriteFile(broken, []byte("<TS><context>"), 0o644))
	_, err = ReadFile(broken)
	require.Error(t, err)
	assert.True(t, apperr.IsErrorType(err, apperr.ErrParse))
	assert.Contains(t, err.Error(), broken)
}
