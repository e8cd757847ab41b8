// internal/workers/matcher/name.go
package matcher

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultCandidateName = "Candidate"
	nameScanChars        = 500
)

var placeholderNames = map[string]bool{
	"":                  true,
	"unknown":           true,
	"unknown candidate": true,
	"candidate":         true,
	"n/a":               true,
	"name":              true,
	"full name here...": true,
}

var nameLabel = regexp.MustCompile(`(?im)^\s*(?:full\s+)?name\s*:\s*(.+)$`)

// IsPlaceholderName reports whether an extracted name is empty or a template value.
func IsPlaceholderName(name string) bool {
	return placeholderNames[strings.ToLower(strings.TrimSpace(name))]
}

// CandidateName keeps extracted unless it is a placeholder, then derives a
// name from the leading part of the raw text.
func CandidateName(extracted, text string) string {
	if !IsPlaceholderName(extracted) {
		return strings.TrimSpace(extracted)
	}
	return NameFromText(text)
}

// NameFromText scans the first ~500 characters for a line of two to four
// capitalized words; then for a "Name:" label; then gives up with "Candidate".
func NameFromText(text string) string {
	head := text
	if len(head) > nameScanChars {
		head = head[:nameScanChars]
		for !utf8.ValidString(head) && len(head) > 0 {
			head = head[:len(head)-1]
		}
	}

	for _, line := range strings.Split(head, "\n") {
		if looksLikeName(strings.TrimSpace(line)) {
			return strings.Join(strings.Fields(line), " ")
		}
	}

	if m := nameLabel.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" && !IsPlaceholderName(name) {
			return name
		}
	}
	return defaultCandidateName
}

func looksLikeName(line string) bool {
	if line == "" || len(line) >= 50 || strings.Contains(line, "@") || strings.Contains(strings.ToLower(line), "http") {
		return false
	}
	// all-caps headings such as CURRICULUM VITAE are not names
	if line == strings.ToUpper(line) {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) {
			return false
		}
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '.' && r != '-' && r != '\'' {
				return false
			}
		}
	}
	return true
}
