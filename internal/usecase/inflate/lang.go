package inflate

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographicCodes maps the ISO 639-2/B codes that differ from their
// terminological form. The index stores bibliographic codes; the language
// matcher only understands the terminological ones.
var bibliographicCodes = map[string]string{
	"alb": "sqi",
	"arm": "hye",
	"baq": "eus",
	"bur": "mya",
	"chi": "zho",
	"cze": "ces",
	"dut": "nld",
	"fre": "fra",
	"geo": "kat",
	"ger": "deu",
	"gre": "ell",
	"ice": "isl",
	"mac": "mkd",
	"mao": "mri",
	"may": "msa",
	"per": "fas",
	"rum": "ron",
	"slo": "slk",
	"tib": "bod",
	"wel": "cym",
}

// LanguageName renders a three-letter alias language code as its English
// display name. The reserved UNK code and anything the matcher cannot place
// both come out as "Unknown".
func LanguageName(code string) string {
	code = strings.ToLower(code)
	if code == "unk" {
		return "Unknown"
	}
	if t, ok := bibliographicCodes[code]; ok {
		code = t
	}

	tag, err := language.Parse(code)
	if err != nil {
		return "Unknown"
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return "Unknown"
}

// invariantPlurals covers the placetype names that do not inflect.
var invariantPlurals = map[string]struct{}{
	"miscellaneous": {},
}

// Pluralize renders a placetype display name in the plural, for grouping
// headings ("Counties", "Suburbs"). English suffix rules plus the handful
// of invariants the gazetteer's placetype vocabulary needs.
func Pluralize(name string) string {
	if name == "" {
		return name
	}
	lower := strings.ToLower(name)
	if _, ok := invariantPlurals[lower]; ok {
		return name
	}

	switch {
	case strings.HasSuffix(lower, "y") && !hasVowelBefore(lower, len(lower)-1):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(lower, "s"),
		strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"),
		strings.HasSuffix(lower, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}

func hasVowelBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	return strings.ContainsRune("aeiou", rune(s[i-1]))
}
