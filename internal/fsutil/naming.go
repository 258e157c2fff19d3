package fsutil

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// DefaultExtension is appended to generated playbook names.
const DefaultExtension = ".yml"

// TimestampLayout is the suffix format of timestamped file names.
const TimestampLayout = "20060102150405"

// now is replaced in tests.
var now = time.Now

// Sanitize turns a display name into a file name stem: lowercased, runs of
// whitespace joined by single underscores, every other character outside
// letters, digits, "_" and "-" replaced by "_", and leading or trailing
// underscores removed.
//
//	Sanitize("My Playbook!")      == "my_playbook"
//	Sanitize("Web/Server Deploy") == "web_server_deploy"
func Sanitize(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r), r == '_', r == '-':
			return unicode.ToLower(r)
		}
		return '_'
	}, name)
	return strings.Trim(strings.Join(strings.Fields(mapped), "_"), "_")
}

// GenerateFilename returns base plus the default extension, with a
// "_YYYYMMDDHHMMSS" suffix when timestamped is set. An empty base becomes
// "playbook". An extension already present on base is not repeated.
func GenerateFilename(base string, timestamped bool) string {
	ext := filepath.Ext(base)
	if ext == ".yml" || ext == ".yaml" {
		base = strings.TrimSuffix(base, ext)
	} else {
		ext = DefaultExtension
	}
	if base == "" {
		base = "playbook"
	}
	if timestamped {
		base += "_" + now().Format(TimestampLayout)
	}
	return base + ext
}

// OutputPath resolves where a playbook is written. An explicit path wins and
// gets a timestamp inserted before its extension when requested. Otherwise
// the file goes to dir under the sanitized name.
func OutputPath(explicit, dir, name string, timestamped bool) string {
	if explicit != "" {
		if !timestamped {
			return explicit
		}
		return filepath.Join(filepath.Dir(explicit), GenerateFilename(filepath.Base(explicit), true))
	}
	return filepath.Join(dir, GenerateFilename(Sanitize(name), timestamped))
}
