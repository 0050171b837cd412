package model

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
)

const (
	// maxBaseNameRunes caps the number of runes kept from the input.
	maxBaseNameRunes = 250

	// maxBaseNameUTF16 leaves room for ".flac" / ".zip" plus one unit under
	// the 255 unit component limit of Windows filesystems.
	maxBaseNameUTF16 = 249
)

// forbiddenChars are rejected by at least one of the common desktop filesystems.
const forbiddenChars = `"\/?<>:*|`

// SanitizeBaseName returns a filesystem-safe file or folder name.
//
// The following transformations are applied:
//   - ASCII control characters and " \ / ? < > : * | are removed
//   - At most 250 runes are kept
//   - Trailing runes are dropped until the UTF-16 length is at most 249 units
//
// Grapheme clusters are not taken into account; a cluster can be cut in the
// middle. The transform is deterministic and idempotent.
//
// Example:
//
//	SanitizeBaseName(`AC/DC: "Live"`) // Returns "ACDC Live"
func SanitizeBaseName(s string) string {
	runes := make([]rune, 0, min(len(s), maxBaseNameRunes))
	for _, r := range s {
		if len(runes) == maxBaseNameRunes {
			break
		}
		if isASCIIControl(r) || strings.ContainsRune(forbiddenChars, r) {
			continue
		}
		runes = append(runes, r)
	}

	units := 0
	for _, r := range runes {
		units += utf16.RuneLen(r)
	}
	for units > maxBaseNameUTF16 {
		units -= utf16.RuneLen(runes[len(runes)-1])
		runes = runes[:len(runes)-1]
	}

	return string(runes)
}

func isASCIIControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// DownloadPath returns the path the release's artifact is saved to:
//
//	{publisherFolder}/{sanitized "YYYY-MM-DD - artist - name"}{.zip|.flac}
//
// The result only depends on its inputs.
func DownloadPath(info *ReleaseInfo, publisherFolder string) string {
	return filepath.Join(publisherFolder, SanitizeBaseName(info.DatedName())+info.Kind.Extension())
}

// PublisherFolder returns the folder artifacts of the release are saved in.
//
// With flat set, every artifact goes straight into musicFolder; otherwise a
// subfolder named after the sanitized publisher is used.
func PublisherFolder(info *ReleaseInfo, musicFolder string, flat bool) string {
	if flat {
		return musicFolder
	}
	return filepath.Join(musicFolder, SanitizeBaseName(info.Publisher))
}

// PathTaken reports whether path, or path without its extension, exists.
//
// The extensionless form catches archives that were already unpacked into a
// folder of the same name.
func PathTaken(path string) bool {
	if exists(path) {
		return true
	}
	return exists(strings.TrimSuffix(path, filepath.Ext(path)))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
