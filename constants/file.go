package constants

import (
	"path/filepath"
	"strings"
)

// Kind is the declared document type, taken from the upload's file extension.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindPNG  Kind = "png"
	KindJPG  Kind = "jpg"
	KindJPEG Kind = "jpeg"
)

// Document formats the text acquirer routes on.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted at the upload boundary.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// KindFromName returns the declared kind of a file name. The result may be unsupported.
func KindFromName(name string) Kind {
	return Kind(NormalizeExt(filepath.Ext(name)))
}

// IsSupportedKind reports whether k is accepted for ingestion.
func IsSupportedKind(k Kind) bool {
	_, ok := AllowedExtensions[NormalizeExt(string(k))]
	return ok
}

// FormatOf maps a kind to PDF or IMAGE; unsupported kinds map to "".
func FormatOf(k Kind) string {
	switch Kind(NormalizeExt(string(k))) {
	case KindPDF:
		return PDF
	case KindPNG, KindJPG, KindJPEG:
		return IMAGE
	default:
		return ""
	}
}
