package warranty

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Locale selects the wording used by FormatRemainingIn.
type Locale string

const (
	LocaleJA Locale = "ja"
	LocaleEN Locale = "en"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.Japanese, language.English})

// NegotiateLocale picks the wording for an Accept-Language header or a bare
// language tag. Anything unsupported or unparsable falls back to Japanese.
func NegotiateLocale(accept string) Locale {
	if _, i := language.MatchStrings(localeMatcher, accept); i == 1 {
		return LocaleEN
	}
	return LocaleJA
}

type units struct{ year, month, day, zero string }

var localeUnits = map[Locale]units{
	LocaleJA: {year: "年", month: "ヶ月", day: "日", zero: "0日"},
	LocaleEN: {year: "y", month: "mo", day: "d", zero: "0d"},
}

// FormatRemaining renders a day count as "1年1ヶ月5日", using 365-day years
// and 30-day months. Zero parts are omitted; days <= 0 yields "".
func FormatRemaining(days int) string {
	return FormatRemainingIn(days, LocaleJA)
}

// FormatRemainingIn is FormatRemaining for a given locale. English output
// separates parts with spaces ("1y 1mo 5d"). Unknown locales use Japanese.
func FormatRemainingIn(days int, locale Locale) string {
	if days <= 0 {
		return ""
	}
	u, ok := localeUnits[locale]
	if !ok {
		u = localeUnits[LocaleJA]
	}

	years := days / 365
	rest := days % 365
	months := rest / 30
	leftover := rest % 30

	var parts []string
	if years > 0 {
		parts = append(parts, strconv.Itoa(years)+u.year)
	}
	if months > 0 {
		parts = append(parts, strconv.Itoa(months)+u.month)
	}
	if leftover > 0 {
		parts = append(parts, strconv.Itoa(leftover)+u.day)
	}
	if len(parts) == 0 {
		return u.zero
	}

	sep := ""
	if locale == LocaleEN {
		sep = " "
	}
	return strings.Join(parts, sep)
}
