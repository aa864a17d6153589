package scrape

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var fullWidth = strings.NewReplacer(
	"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
	"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
	"，", ",", "。", ".", "．", ".", "＋", "+", "－", "-",
	"　", " ", "％", "%", "\u00a0", " ",
)

// NormalizeWidth maps full-width digits and punctuation to their ASCII forms.
func NormalizeWidth(s string) string {
	return fullWidth.Replace(s)
}

// Comma-grouped numbers are tried before plain digit runs so "1,234,567" is read whole.
var numberPattern = regexp.MustCompile(`[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?(?:[eE][+-]?\d+)?`)

// ExtractNumber returns the first number in s.
func ExtractNumber(s string) (decimal.Decimal, bool) {
	m := numberPattern.FindString(NormalizeWidth(s))
	if m == "" {
		return decimal.Zero, false
	}
	return ParseNumber(m)
}

// ExtractNumbers returns every number in s, in order of appearance.
func ExtractNumbers(s string) []decimal.Decimal {
	matches := numberPattern.FindAllString(NormalizeWidth(s), -1)
	out := make([]decimal.Decimal, 0, len(matches))
	for _, m := range matches {
		if v, ok := ParseNumber(m); ok {
			out = append(out, v)
		}
	}
	return out
}

// ParseNumber parses a numeric token, ignoring grouping commas and spaces.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer(",", "", " ", "").Replace(NormalizeWidth(strings.TrimSpace(s)))
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// Submatches returns group 1 of every match of re in s, parsed as numbers.
func Submatches(re *regexp.Regexp, s string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if len(m) < 2 {
			continue
		}
		if v, ok := ExtractNumber(m[1]); ok {
			out = append(out, v)
		}
	}
	return out
}

// Window returns up to n characters of s starting at the first occurrence of
// label, the label included. ok is false if label is absent.
func Window(s, label string, n int) (string, bool) {
	idx := strings.Index(s, label)
	if idx < 0 {
		return "", false
	}
	rest := s[idx:]
	count := 0
	for i := range rest {
		if count == n {
			return rest[:i], true
		}
		count++
	}
	return rest, true
}

var jpCorporateAffixes = []string{"株式会社", "合同会社", "合名会社", "合資会社", "有限会社", "(株)", "（株）"}

var enCorporateSuffixes = []string{
	" COMPANY, LIMITED", " COMPANY LIMITED", " CO., LTD.", " CO.,LTD.",
	" CO., LTD", " CO.,LTD", " CO.LTD", " LTD.", " LTD",
	" INC.", " INC", " CORP.", " CORP",
}

// CleanCompanyName strips Japanese corporate affixes and one trailing English
// corporate suffix (case-insensitive).
func CleanCompanyName(name string) string {
	for _, affix := range jpCorporateAffixes {
		name = strings.ReplaceAll(name, affix, "")
	}
	upper := strings.ToUpper(name)
	for _, suffix := range enCorporateSuffixes {
		if len(upper) == len(name) && strings.HasSuffix(upper, suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return strings.TrimSpace(name)
}
