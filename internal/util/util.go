package util

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const proofTimeLayout = "02012006_150405"

func NowISO() string {
	return time.Now().Format(time.RFC3339)
}

// NormalizeName is the comparison key for participant names.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps only the digits of s.
func NormalizePhone(s string) string {
	b := strings.Builder{}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ValidPhone(s string) bool {
	return len(NormalizePhone(s)) == 11
}

// FormatPhone renders an 11 digit phone as (DD) DDDDD-DDDD. Anything else is
// returned unchanged.
func FormatPhone(s string) string {
	d := NormalizePhone(s)
	if len(d) != 11 {
		return s
	}
	return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
}

// Slug lower-cases s, joins words with '_' and drops anything that is not a
// letter, digit, '_' or '-'.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	b := strings.Builder{}
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			if space && b.Len() > 0 {
				b.WriteRune('_')
			}
			space = false
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "participante"
	}
	return out
}

// Ext returns the extension of a file name including the dot, or "".
func Ext(fileName string) string {
	return filepath.Ext(strings.TrimSpace(fileName))
}

// ProofFileName builds DDMMYYYY_HHMMSS_<slug><ext>.
func ProofFileName(at time.Time, participantName, originalName string) string {
	return at.Format(proofTimeLayout) + "_" + Slug(participantName) + Ext(originalName)
}
