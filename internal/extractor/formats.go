package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/abelprasad/Manifold/internal/models"
)

func directPage(num int, text string) models.PageText {
	return models.PageText{PageNum: num, Text: text, Method: models.MethodDirect, CharCount: len(text)}
}

// extractText treats form feeds as page breaks; without them the file is a
// single page.
func extractText(data []byte) ([]models.PageText, error) {
	parts := strings.Split(string(data), "\f")
	pages := make([]models.PageText, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, directPage(i+1, part))
	}
	return pages, nil
}

func extractMarkdown(data []byte) ([]models.PageText, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(gmtext.NewReader(data))

	var buf strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return []models.PageText{directPage(1, buf.String())}, nil
}

func extractDOCX(data []byte) ([]models.PageText, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return []models.PageText{directPage(1, textFromWordXML(content))}, nil
}

// textFromWordXML pulls the text runs out of word/document.xml content.
func textFromWordXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<w:t")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		gt := strings.Index(part, ">")
		if gt < 0 {
			continue
		}
		rest := part[gt+1:]
		if end := strings.Index(rest, "</w:t>"); end >= 0 {
			text.WriteString(rest[:end] + " ")
		}
	}
	return text.String()
}

// extractXLSX maps sheet n to page n.
func extractXLSX(data []byte) ([]models.PageText, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}
	pages := make([]models.PageText, 0, len(f.Sheets))
	for i, sheet := range f.Sheets {
		var text strings.Builder
		fmt.Fprintf(&text, "Sheet: %s\n", sheet.Name)
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, directPage(i+1, text.String()))
	}
	return pages, nil
}

// extractODS maps sheet n to page n.
func extractODS(data []byte) ([]models.PageText, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.PageText
	for i, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		fmt.Fprintf(&text, "Sheet: %s\n", sheetName)
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, directPage(i+1, text.String()))
	}
	return pages, nil
}
