package arbitrage

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// DefaultAliases maps common abbreviations in market questions to the word
// other venues tend to spell out.
func DefaultAliases() map[string]string {
	return map[string]string{
		"btc": "bitcoin",
		"eth": "ethereum",
		"sol": "solana",
		"fed": "federal reserve",
	}
}

// TextSimilarity canonicalizes market questions before they are compared.
type TextSimilarity struct {
	aliases map[string]string
}

// NewTextSimilarity builds a canonicalizer with the given alias table. Keys
// and values are lower-cased; a nil table disables aliasing.
func NewTextSimilarity(aliases map[string]string) *TextSimilarity {
	m := make(map[string]string, len(aliases))
	for k, v := range aliases {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		m[k] = strings.ToLower(strings.TrimSpace(v))
	}
	return &TextSimilarity{aliases: m}
}

// Canonical lower-cases text, collapses whitespace, applies aliases and
// rewrites numbers so "$100k" and "$100,000" become the same token.
func (s *TextSimilarity) Canonical(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	for i, tok := range fields {
		fields[i] = s.canonicalToken(tok)
	}
	return strings.Join(fields, " ")
}

// Score canonicalizes both texts and returns their Ratio.
func (s *TextSimilarity) Score(a, b string) float64 {
	return Ratio(s.Canonical(a), s.Canonical(b))
}

func (s *TextSimilarity) canonicalToken(tok string) string {
	start := strings.IndexFunc(tok, isWordRune)
	if start < 0 {
		return tok
	}
	last := strings.LastIndexFunc(tok, isWordRune)
	_, size := utf8.DecodeRuneInString(tok[last:])
	end := last + size

	prefix, core, suffix := tok[:start], tok[start:end], tok[end:]
	if alias, ok := s.aliases[core]; ok {
		core = alias
	} else if n, ok := canonicalNumber(core); ok {
		core = n
	}
	return prefix + core + suffix
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// numberPattern accepts "100000", "100,000", "2.5" and magnitude suffixes
// such as "100k", "1.5m" or "3b".
var numberPattern = regexp.MustCompile(`^(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?([kmb])?$`)

func canonicalNumber(core string) (string, bool) {
	m := numberPattern.FindStringSubmatch(core)
	if m == nil {
		return "", false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "") + m[2])
	if err != nil {
		return "", false
	}
	switch m[3] {
	case "k":
		d = d.Shift(3)
	case "m":
		d = d.Shift(6)
	case "b":
		d = d.Shift(9)
	}
	return d.String(), true
}

// Ratio is the normalized edit-distance similarity of two strings in [0,1]:
// 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes. Two empty
// strings are identical.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
