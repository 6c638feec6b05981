package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
)

func sampleSchema() Schema {
	a := NewElement()
	b := NewElement()
	b.Type = TypeTable
	b.Y = 70
	b.H = 380
	b.Text = ""
	return Schema{
		Meta:     Meta{DocType: DocSale, PaperSize: layout.Paper58, Orientation: layout.Portrait, Name: "Counter"},
		Elements: []Element{a, b},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := sampleSchema()
	text, err := Export(s)
	require.NoError(t, err)
	require.Contains(t, text, "\n  \"meta\"")

	got, err := Import(text)
	require.NoError(t, err)
	require.Equal(t, s.Elements, got)
}

func TestImportNestedShapes(t *testing.T) {
	inner := `{"elements":[{"id":"a","type":"line","x":0,"y":0,"w":100,"h":2}]}`
	for _, text := range []string{
		`{"template_json":` + inner + `}`,
		`{"schema":` + inner + `}`,
		`{"elements":[],"schema":` + inner + `}`,
	} {
		got, err := Import(text)
		require.NoError(t, err, text)
		require.Len(t, got, 1)
		require.Equal(t, "a", got[0].ID)
		require.Equal(t, TypeLine, got[0].Type)
	}
}

func TestImportRejectsMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"not json",
		`[1,2,3]`,
		`{"meta":{"doc_type":"sale"}}`,
		`{"elements":[]}`,
		`{"elements":{"id":"a"}}`,
		`{"template_json":{"elements":"nope"}}`,
	} {
		_, err := Import(text)
		require.ErrorIs(t, err, ErrImportInvalid, text)
		require.True(t, errors.Is(err, httpx.ErrValidation))
	}
}

func TestImportRejectsDuplicateIDs(t *testing.T) {
	_, err := Import(`{"elements":[
		{"id":"a","type":"text","w":10,"h":10},
		{"id":"a","type":"text","w":10,"h":10}]}`)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestImportAssignsMissingIDs(t *testing.T) {
	got, err := Import(`{"elements":[{"type":"logo","w":40,"h":40}]}`)
	require.NoError(t, err)
	require.NotEmpty(t, got[0].ID)
}

func TestValidateMeta(t *testing.T) {
	require.NoError(t, ValidateMeta(DefaultMeta()))
	err := ValidateMeta(Meta{DocType: "invoice", PaperSize: layout.Paper80, Orientation: layout.Portrait})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "doctype")
}

func TestNewElementDefaults(t *testing.T) {
	a, b := NewElement(), NewElement()
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, TypeText, a.Type)
	require.Equal(t, "Text", a.Text)
	require.Equal(t, []float64{10, 10, 180, 34, 14}, []float64{a.X, a.Y, a.W, a.H, a.FontSize})
	require.Equal(t, AlignLeft, a.Align)
	require.False(t, a.Bold)
}

func TestDecodeTemplateJSON(t *testing.T) {
	require.Empty(t, DecodeTemplateJSON(nil).Elements)
	require.Empty(t, DecodeTemplateJSON([]byte("{bad")).Elements)
	s := DecodeTemplateJSON([]byte(`{"meta":{"paper_size":"A4"},"elements":[{"id":"x","type":"logo"}]}`))
	require.Equal(t, layout.PaperA4, s.Meta.PaperSize)
	require.Len(t, s.Elements, 1)
}
