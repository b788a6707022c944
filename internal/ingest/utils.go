package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// AllowedExt checks if a file extension is one of the ingestible kinds.
func AllowedExt(ext string) bool {
	return constants.IsSupportedKind(constants.Kind(ext))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
