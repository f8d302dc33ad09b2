/*
Package randx generates identifiers and object names.
*/
package randx

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// PhotoNameMaxRunes is the maximum length of the cleaned original name in a photo file name.
	PhotoNameMaxRunes = 20

	// photoTimeLayout is YYMMDDHHMM.
	photoTimeLayout = "0601021504"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9가-힣]`)

// TokenID returns a UUID v4 string used as a token id.
func TokenID() string {
	return uuid.New().String()
}

// RequestID returns a UUID v4 string for correlating log lines.
func RequestID() string {
	return uuid.New().String()
}

// PhotoFileName returns "<YYMMDDHHMM>_<clean>" for original, where clean is the base
// name without extension, every character outside letters, digits and Hangul replaced
// by "_", cut to PhotoNameMaxRunes. The caller appends the extension.
func PhotoFileName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "." || base == "/" {
		base = ""
	}

	clean := unsafeNameChars.ReplaceAllString(base, "_")
	if r := []rune(clean); len(r) > PhotoNameMaxRunes {
		clean = string(r[:PhotoNameMaxRunes])
	}
	if clean == "" {
		clean = "photo"
	}
	return now.Format(photoTimeLayout) + "_" + clean
}
