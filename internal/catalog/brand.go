package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeModel folds full-width characters, upper-cases and trims a model
// number typed by a user or read from a receipt.
func NormalizeModel(raw string) string {
	s := width.Fold.String(raw)
	s = strings.ReplaceAll(s, "ー", "-")
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToUpper(s)
}

type brandPrefix struct {
	prefix string
	brand  string
}

// The first matching prefix wins.
var brandPrefixes = []brandPrefix{
	{"MSZ-", "Mitsubishi"},
	{"RAS-", "Hitachi"},
	{"NA-", "Panasonic"},
	{"NR-", "Panasonic"},
	{"NE-", "Panasonic"},
	{"CS-", "Panasonic"},
	{"MC-", "Panasonic"},
	{"MR-", "Mitsubishi"},
	{"NJ-", "Mitsubishi"},
	{"BD-", "Hitachi"},
	{"BW-", "Hitachi"},
	{"MRO-", "Hitachi"},
	{"ES-", "Sharp"},
	{"SJ-", "Sharp"},
	{"AY-", "Sharp"},
	{"KI-", "Sharp"},
	{"RE-", "Sharp"},
	{"GR-", "Toshiba"},
	{"AW-", "Toshiba"},
	{"TW-", "Toshiba"},
	{"ER-", "Toshiba"},
	{"AN", "Daikin"},
	{"MCK", "Daikin"},
	{"IAW-", "Iris Ohyama"},
	{"KAW-", "Iris Ohyama"},
	{"SV", "Dyson"},
}

// GuessBrand infers the manufacturer from a normalized model number.
func GuessBrand(model string) (string, bool) {
	for _, p := range brandPrefixes {
		if strings.HasPrefix(model, p.prefix) {
			return p.brand, true
		}
	}
	return "", false
}
