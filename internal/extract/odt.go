package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// odtContentPath is the path to the main content inside an .odt zip (OpenDocument Text).
const odtContentPath = "content.xml"

// odtTextP matches one structural paragraph element <text:p ...>...</text:p>,
// nested spans included.
var odtTextP = regexp.MustCompile(`(?s)<text:p[^>]*>(.*?)</text:p>`)

// xmlTag matches any remaining markup inside a paragraph body (spans, breaks).
var xmlTag = regexp.MustCompile(`<[^>]+>`)

// extractODT returns one raw paragraph per non-empty <text:p> element.
// ODT is a ZIP containing content.xml (OpenDocument); nested markup such as
// <text:span> is stripped so only the paragraph's text content remains.
func extractODT(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract ODT: not a zip: %w", err)
	}
	contentXML := readZipFile(zr, odtContentPath)
	if contentXML == nil {
		return nil, fmt.Errorf("extract ODT: %s not found", odtContentPath)
	}

	blocks := odtTextP.FindAllStringSubmatch(string(contentXML), -1)
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		text := strings.TrimSpace(xmlTag.ReplaceAllString(block[1], " "))
		text = strings.Join(strings.Fields(text), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs, nil
}
