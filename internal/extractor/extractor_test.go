package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelprasad/Manifold/internal/models"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ models.PageImage) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestResolvePage_KeepsDirectText(t *testing.T) {
	rec := &fakeRecognizer{text: "should not be used"}
	e := New(rec)
	direct := strings.Repeat("readable text ", 10)

	pg := e.resolvePage(context.Background(), 3, direct, nil, "application/pdf")

	assert.Equal(t, models.MethodDirect, pg.Method)
	assert.Equal(t, direct, pg.Text)
	assert.Equal(t, len(direct), pg.CharCount)
	assert.Equal(t, 3, pg.PageNum)
	assert.Zero(t, rec.calls)
}

func TestResolvePage_ShortTextTriggersRecognition(t *testing.T) {
	rec := &fakeRecognizer{text: "recognized page content"}
	e := New(rec)

	pg := e.resolvePage(context.Background(), 1, "   short   ", nil, "application/pdf")

	assert.Equal(t, models.MethodRecognized, pg.Method)
	assert.Equal(t, "recognized page content", pg.Text)
	assert.Equal(t, len("recognized page content"), pg.CharCount)
	assert.Equal(t, 1, rec.calls)
}

func TestResolvePage_RecognizerFailureRecordsSentinel(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("model unavailable")}
	e := New(rec)

	pg := e.resolvePage(context.Background(), 2, "", nil, "application/pdf")

	assert.Equal(t, models.MethodRecognized, pg.Method)
	assert.Contains(t, pg.Text, "recognition error on this page")
	assert.Contains(t, pg.Text, "model unavailable")
	assert.Equal(t, len(pg.Text), pg.CharCount)
}

func TestResolvePage_NilRecognizerRecordsSentinel(t *testing.T) {
	e := New(nil)

	pg := e.resolvePage(context.Background(), 1, "", nil, "application/pdf")

	assert.Equal(t, models.MethodRecognized, pg.Method)
	assert.Contains(t, pg.Text, "recognition error on this page")
}

func TestExtract_TextPagesOnFormFeeds(t *testing.T) {
	e := New(nil)
	data := []byte("page one body\fpage two body\fpage three body")

	pages, err := e.Extract(context.Background(), "notes.txt", data)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, 1, pages[0].PageNum)
	assert.Equal(t, "page one body", pages[0].Text)
	assert.Equal(t, 3, pages[2].PageNum)
	for _, pg := range pages {
		assert.Equal(t, models.MethodDirect, pg.Method)
		assert.Equal(t, len(pg.Text), pg.CharCount)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), "archive.zip", []byte("zzz"))
	require.Error(t, err)

	var extErr *models.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "archive.zip", extErr.Filename)
}

func TestExtract_Markdown(t *testing.T) {
	e := New(nil)
	data := []byte("# Evidence Log\n\nA *knife* was found at the scene.\n")

	pages, err := e.Extract(context.Background(), "log.md", data)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.Contains(t, pages[0].Text, "Evidence Log")
	assert.Contains(t, pages[0].Text, "knife")
	assert.NotContains(t, pages[0].Text, "*")
	assert.NotContains(t, pages[0].Text, "#")
}

func TestTextFromWordXML(t *testing.T) {
	xml := `<w:p><w:r><w:t>First run.</w:t></w:r><w:r><w:t xml:space="preserve">Second run.</w:t></w:r></w:p>`

	got := textFromWordXML(xml)

	assert.Contains(t, got, "First run.")
	assert.Contains(t, got, "Second run.")
	assert.NotContains(t, got, "<w:t")
}
