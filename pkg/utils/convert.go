package utils

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale carries the number and date conventions used by the To* conversions.
// There is no process-wide locale: every conversion takes one explicitly.
type Locale struct {
	Tag         language.Tag
	Decimal     rune // decimal separator
	Group       rune // digit group separator, 0 when the locale has none
	DateLayouts []string
	Location    *time.Location // nil means UTC
}

// xmlTimeLayout mirrors the XML Schema dateTime form with seven fractional digits.
const xmlTimeLayout = "2006-01-02T15:04:05.0000000Z07:00"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// InvariantLocale parses with '.' decimals, ',' grouping and ISO dates only.
var InvariantLocale = Locale{Tag: language.Und, Decimal: '.', Group: ',', DateLayouts: isoLayouts}

// NewLocale derives separators from CLDR data for tag and adds the regional
// day/month layouts in front of the ISO ones.
func NewLocale(tag language.Tag) Locale {
	dec, grp := separators(tag)
	layouts := append(regionalLayouts(tag), isoLayouts...)
	return Locale{Tag: tag, Decimal: dec, Group: grp, DateLayouts: layouts}
}

// separators formats a probe number with the locale's printer and reads the
// separators back out of the result.
func separators(tag language.Tag) (decimal, group rune) {
	p := message.NewPrinter(tag)
	s := p.Sprintf("%v", number.Decimal(1234567.5, number.MinFractionDigits(1), number.MaxFractionDigits(1)))

	var seps []rune
	for _, r := range s {
		if !unicode.IsDigit(r) {
			seps = append(seps, r)
		}
	}
	if len(seps) == 0 {
		return '.', ','
	}
	decimal = seps[len(seps)-1]
	if seps[0] != decimal {
		group = seps[0]
	}
	return decimal, group
}

func regionalLayouts(tag language.Tag) []string {
	base, _ := tag.Base()
	region, _ := tag.Region()
	switch base.String() {
	case "en":
		if region.String() == "US" {
			return []string{"1/2/2006 3:04:05 PM", "1/2/2006 15:04:05", "1/2/2006"}
		}
		return []string{"2/1/2006 15:04:05", "2/1/2006"}
	case "de", "ru", "pl", "cs", "tr", "fi", "nb", "da", "uk", "ro", "sk":
		return []string{"2.1.2006 15:04:05", "2.1.2006 15:04", "2.1.2006"}
	case "fr", "es", "it", "pt", "el":
		return []string{"2/1/2006 15:04:05", "2/1/2006"}
	case "nl":
		return []string{"2-1-2006 15:04:05", "2-1-2006"}
	}
	return nil
}

// clean strips grouping and whitespace and rewrites the decimal separator to '.'
// so the result is acceptable to strconv. A value wrapped in parentheses is negated.
func (l Locale) clean(s string) string {
	s = strings.TrimSpace(s)
	neg := false
	if len(s) > 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case l.Group != 0 && r == l.Group:
		case r == l.Decimal:
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ToString formats v with fmt and reports false for nil or an empty result.
func ToString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

// ToInt64 converts v to an int64. Strings are parsed with loc; whole-valued
// decimals and exponents ("1.0", "1e3") are accepted like any other integer.
func ToInt64(v any, loc Locale) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	}
	s, ok := ToString(v)
	if !ok || IsBlank(s) {
		return 0, false
	}
	clean := loc.clean(s)
	if n, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt64(f)
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ToInt is ToInt64 narrowed to the platform int.
func ToInt(v any, loc Locale) (int, bool) {
	n, ok := ToInt64(v, loc)
	if !ok || n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

// ToFloat64 converts v to a float64, parsing strings with loc.
func ToFloat64(v any, loc Locale) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	s, ok := ToString(v)
	if !ok || IsBlank(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(loc.clean(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToDecimal converts v to an exact rational, parsing strings with loc.
func ToDecimal(v any, loc Locale) (*big.Rat, bool) {
	s, ok := ToString(v)
	if !ok || IsBlank(s) {
		return nil, false
	}
	clean := loc.clean(s)
	if strings.ContainsRune(clean, '/') {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(clean)
	if !ok {
		return nil, false
	}
	return r, true
}

// ToBool reports true only for a case-insensitive "true"; everything else,
// blank included, is false.
func ToBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	s, ok := ToString(v)
	if !ok || IsBlank(s) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// ParseTime tries each of loc's layouts in order.
func ParseTime(s string, loc Locale) (time.Time, bool) {
	if IsBlank(s) {
		return time.Time{}, false
	}
	where := loc.Location
	if where == nil {
		where = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range loc.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, where); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatXMLTime renders t as an XML Schema dateTime with its own offset.
func FormatXMLTime(t time.Time) string {
	return t.Format(xmlTimeLayout)
}

// ParseXMLTime is the inverse of FormatXMLTime; any RFC 3339 value is accepted.
func ParseXMLTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
