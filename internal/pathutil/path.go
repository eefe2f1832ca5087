package pathutil

import (
	"path"
	"strings"
	"sync"

	"github.com/gosimple/slug"
)

const maxAdjustedLength = 80

var slugMu sync.Mutex

// AdjustForFilename turns s into a portable file name stem of at most
// length characters (a default length if zero).
func AdjustForFilename(s string, length int) string {
	if length == 0 {
		length = maxAdjustedLength
	}

	slugMu.Lock()
	defer slugMu.Unlock()

	slug.MaxLength = length
	slug.Lowercase = false

	return slug.Make(s)
}

// SafeFilename reduces a file name suggested by a remote party to a
// portable base name, keeping its extension. It returns fallback when
// nothing usable is left.
func SafeFilename(name, fallback string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		name = ""
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	ext = AdjustForFilename(strings.TrimPrefix(ext, "."), 10)

	stem = AdjustForFilename(stem, 0)
	if stem == "" {
		return fallback
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
