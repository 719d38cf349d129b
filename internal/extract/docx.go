package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// paragraph splits the body into <w:p> elements; <w:pPr> and <w:proofErr> are not matched.
	paragraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>(.*?)</w:p>`)
	// textRun captures <w:t> content with any attributes.
	textRun = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	// lineBreak matches <w:br/> and <w:tab/> elements inside a paragraph.
	lineBreak = regexp.MustCompile(`<w:(br|cr|tab)(?:\s[^>]*)?/>`)

	mainPartName = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	// mainPartNameRev handles ContentType appearing before PartName.
	mainPartNameRev = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

func readZipFile(zr *zip.Reader, name string) ([]byte, bool, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, true, err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		return b, true, err
	}
	return nil, false, nil
}

// docxMainDocumentPath reads [Content_Types].xml for the main part, defaulting to word/document.xml.
func docxMainDocumentPath(zr *zip.Reader) string {
	ct, ok, err := readZipFile(zr, contentTypesPath)
	if !ok || err != nil {
		return docxDocumentXMLPath
	}
	for _, re := range []*regexp.Regexp{mainPartName, mainPartNameRev} {
		if m := re.FindSubmatch(ct); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDocumentXMLPath
}

// extractDOCX returns one line per paragraph. Runs inside a paragraph are concatenated
// as-is since Word splits words across runs freely.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := docxMainDocumentPath(zr)
	docXML, ok, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", docPath, err)
	}
	if !ok {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	var lines []string
	for _, p := range paragraph.FindAllSubmatch(docXML, -1) {
		body := lineBreak.ReplaceAllFunc(p[1], func(m []byte) []byte {
			if bytes.Contains(m, []byte("tab")) {
				return []byte("<w:t>\t</w:t>")
			}
			return []byte("<w:t>\n</w:t>")
		})
		var b strings.Builder
		for _, run := range textRun.FindAllSubmatch(body, -1) {
			b.WriteString(html.UnescapeString(string(run[1])))
		}
		lines = append(lines, strings.TrimRight(b.String(), " \t"))
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
