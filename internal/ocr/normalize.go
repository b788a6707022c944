package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHorizontal = regexp.MustCompile(`[ \t]+`)
	reBlank2     = regexp.MustCompile(`\n{2,}`)
	reBlank3     = regexp.MustCompile(`\n{3,}`)
)

// NormalizeNative cleans text read from a PDF text layer: runs of spaces and
// tabs become one space and any run of blank lines becomes exactly one.
func NormalizeNative(s string) string {
	return collapse(s, reBlank2)
}

// NormalizeOCR cleans page OCR output: runs of spaces and tabs become one
// space and three or more newlines become one blank line.
func NormalizeOCR(s string) string {
	return collapse(s, reBlank3)
}

func collapse(s string, blank *regexp.Regexp) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = blank.ReplaceAllString(s, "\n\n")
	s = reHorizontal.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
