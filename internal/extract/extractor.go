package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"tendersum/internal/util"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF   = "application/pdf"
	MimeDoc   = "application/msword"
	MimeDocx  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePlain = "text/plain"
)

// SupportedMimeTypes lists the formats the extractor accepts, in upload
// allow-list order.
var SupportedMimeTypes = []string{MimePDF, MimeDoc, MimeDocx, MimePlain}

func IsSupportedMime(mimeType string) bool {
	for _, m := range SupportedMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract reads the document at path and returns its plain text. The declared
// MIME type commits to one code path; there is no fallback between formats.
// Empty output is valid for degenerate documents.
func (e *Extractor) Extract(path, mimeType string) (string, error) {
	switch mimeType {
	case MimePDF:
		return extractPDF(path)
	case MimeDoc:
		return extractLegacyWord(path)
	case MimeDocx:
		return extractDocx(path)
	case MimePlain:
		return extractPlain(path)
	default:
		return "", fmt.Errorf("%w: %s", util.ErrUnsupportedFormat, mimeType)
	}
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", util.ErrExtractionFailure, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract pdf text: %v", util.ErrExtractionFailure, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("%w: read extracted text: %v", util.ErrExtractionFailure, err)
	}
	return util.SanitizeText(buf.String()), nil
}

func extractDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", util.ErrExtractionFailure, err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: docx missing word/document.xml", util.ErrExtractionFailure)
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open document.xml: %v", util.ErrExtractionFailure, err)
	}
	defer rc.Close()

	text, err := docxRunsToText(rc)
	if err != nil {
		return "", fmt.Errorf("%w: parse document.xml: %v", util.ErrExtractionFailure, err)
	}
	return util.SanitizeText(text), nil
}

// docxRunsToText walks the WordprocessingML token stream collecting the text
// runs (w:t), with paragraph boundaries as newlines and tabs/breaks as spaces.
func docxRunsToText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				b.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// extractLegacyWord does a best-effort scrape of printable text runs from the
// OLE binary. Formatting noise survives but downstream normalization and
// keyword extraction tolerate it.
func extractLegacyWord(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read doc: %v", util.ErrExtractionFailure, err)
	}
	if len(raw) == 0 {
		return "", nil
	}

	var b strings.Builder
	var run []byte
	flush := func() {
		// Short runs are almost always binary noise.
		if len(run) >= 4 {
			b.Write(run)
			b.WriteByte(' ')
		}
		run = run[:0]
	}
	for _, c := range raw {
		if c == '\r' || c == '\n' || c == '\t' || (c >= 0x20 && c < 0x7f) {
			run = append(run, c)
			continue
		}
		flush()
	}
	flush()
	return util.SanitizeText(b.String()), nil
}

func extractPlain(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read text file: %v", util.ErrExtractionFailure, err)
	}
	return util.SanitizeText(string(raw)), nil
}
