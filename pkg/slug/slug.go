package slug

import (
	"regexp"
	"strings"
)

var (
	nonHandle   = regexp.MustCompile(`[^a-z0-9]+`)
	validHandle = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// maxHandleLen is the longest handle the commerce backend accepts.
const maxHandleLen = 255

var accentReplacer = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y",
	"ğ", "g", "ş", "s", "ß", "ss", "æ", "ae", "œ", "oe",
	"&", " and ",
)

// Generate derives a product or collection handle from a title the same way
// the storefront admin does: lowercase, accents folded, runs of anything
// else collapsed to single hyphens.
//
// Examples:
//   - "Calm Sleep Tea" → "calm-sleep-tea"
//   - "Crème Brûlée Candle" → "creme-brulee-candle"
//   - "Bath & Body" → "bath-and-body"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = accentReplacer.Replace(s)
	s = nonHandle.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxHandleLen {
		s = strings.TrimRight(s[:maxHandleLen], "-")
	}
	return s
}

// Valid reports whether h is already a well-formed handle.
func Valid(h string) bool {
	return len(h) <= maxHandleLen && validHandle.MatchString(h)
}
