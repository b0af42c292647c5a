package corpus

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"activity-rag/internal/models"
)

var (
	docxParagraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxTextRe      = regexp.MustCompile(`(?s)<w:t(?: [^>]*)?>(.*?)</w:t>`)
	pptxParagraphRe = regexp.MustCompile(`(?s)<a:p>.*?</a:p>`)
	pptxTextRe      = regexp.MustCompile(`(?s)<a:t>(.*?)</a:t>`)
	slideNameRe     = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

// Supported reports whether LoadFile understands the file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".html", ".htm", ".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".ods":
		return true
	}
	return false
}

// CodeFor derives the document code from a file name: the upper-cased base
// name without extension.
func CodeFor(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// LoadFile reads one corpus file into a document whose body holds the
// extracted paragraphs separated by blank lines.
func LoadFile(path string) (models.Document, error) {
	var (
		paras []string
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		paras, err = parseText(path)
	case ".md", ".markdown":
		paras, err = parseMarkdown(path)
	case ".html", ".htm":
		paras, err = parseHTML(path)
	case ".pdf":
		paras, err = parsePDF(path)
	case ".docx":
		paras, err = parseDOCX(path)
	case ".pptx":
		paras, err = parsePPTX(path)
	case ".xlsx":
		paras, err = parseXLSX(path)
	case ".xlsm", ".ods":
		paras, err = parseSpreadsheet(path)
	default:
		return models.Document{}, fmt.Errorf("%w: unsupported file format: %s", models.ErrInvalidInput, ext)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return models.Document{
		Code: CodeFor(path),
		Body: strings.Join(nonEmpty(paras), "\n\n"),
	}, nil
}

// LoadPaths loads every supported file named by paths. Directories are walked
// recursively in lexical order. Documents without text are skipped.
func LoadPaths(paths []string) ([]models.Document, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && Supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	docs := make([]models.Document, 0, len(files))
	codes := make(map[string]string, len(files))
	for _, f := range files {
		doc, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(doc.Body) == "" {
			log.Warn().Str("file", f).Msg("Skipping file without text")
			continue
		}
		if prev, ok := codes[doc.Code]; ok {
			return nil, fmt.Errorf("%w: %s and %s share document code %q", models.ErrInvalidInput, prev, f, doc.Code)
		}
		codes[doc.Code] = f
		docs = append(docs, doc)
		log.Debug().Str("file", f).Str("code", doc.Code).Msg("Loaded document")
	}
	return docs, nil
}

func parseText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}

func parseMarkdown(path string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return markdownParagraphs(src), nil
}

// markdownParagraphs returns the plain text of every block in a markdown
// document, dropping the markup.
func markdownParagraphs(src []byte) []string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var paras []string
	var buf strings.Builder
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			paras = append(paras, s)
		}
		buf.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		}
		if !entering && n.Type() == ast.TypeBlock {
			flush()
		}
		return ast.WalkContinue, nil
	})
	flush()
	return paras
}

// blockTags end a paragraph in HTML documents.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "br": true, "pre": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "section": true, "article": true,
}

func parseHTML(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return htmlParagraphs(f)
}

// htmlParagraphs returns the visible text of an HTML document, one entry per
// block element. Script and style contents are dropped.
func htmlParagraphs(r io.Reader) ([]string, error) {
	var paras []string
	var buf strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(buf.String()), " "); s != "" {
			paras = append(paras, s)
		}
		buf.Reset()
	}

	z := html.NewTokenizer(r)
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			flush()
			return paras, nil
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
				buf.WriteByte(' ')
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case blockTags[tag]:
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip = max(0, skip-1)
			case blockTags[tag]:
				flush()
			}
		}
	}
}

func parsePDF(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paras []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		paras = append(paras, pageText)
	}
	return paras, nil
}

func parseDOCX(path string) ([]string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return xmlParagraphs(r.Editable().GetContent(), docxParagraphRe, docxTextRe), nil
}

func parsePPTX(path string) ([]string, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := slideNameRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	slices.SortFunc(slides, func(a, b slide) int { return a.num - b.num })

	var paras []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		// one paragraph per slide
		paras = append(paras, strings.Join(xmlParagraphs(string(data), pptxParagraphRe, pptxTextRe), "\n"))
	}
	return paras, nil
}

func xmlParagraphs(content string, paraRe, textRe *regexp.Regexp) []string {
	var paras []string
	for _, p := range paraRe.FindAllString(content, -1) {
		var b strings.Builder
		for _, m := range textRe.FindAllStringSubmatch(p, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			paras = append(paras, s)
		}
	}
	return paras
}

func parseXLSX(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}

	var paras []string
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		paras = append(paras, sheetText(sheet.Name, rows))
	}
	return paras, nil
}

func parseSpreadsheet(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paras []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		paras = append(paras, sheetText(name, rows))
	}
	return paras, nil
}

// sheetText renders a sheet as tab separated lines under a title line.
func sheetText(name string, rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("Sheet: %s\n%s", name, strings.TrimRight(b.String(), "\n"))
}

func nonEmpty(paras []string) []string {
	out := paras[:0]
	for _, p := range paras {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
