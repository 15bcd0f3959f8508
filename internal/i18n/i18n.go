package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Language is a display language code
type Language string

const (
	French Language = "fr"
	Arabic Language = "ar"

	// Primary is used whenever a language is unknown or a translation is missing
	Primary = French

	// CookieName stores the operator's language choice
	CookieName = "aqua-language"
)

// Supported lists the display languages in preference order
var Supported = []Language{French, Arabic}

var (
	tags    = []language.Tag{language.French, language.Arabic}
	matcher = language.NewMatcher(tags)
)

// ParseLanguage returns the language for a code such as "ar" or "fr-FR".
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Primary, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return Primary, false
	}
	base, _ := tag.Base()
	for _, l := range Supported {
		if base.String() == string(l) {
			return l, true
		}
	}
	return Primary, false
}

// Negotiate picks the display language for a request. An explicit query value
// wins over the cookie, which wins over the Accept-Language header. fallback
// is used when none of them names a supported language.
func Negotiate(query, cookie, acceptLanguage string, fallback Language) Language {
	if _, ok := ParseLanguage(string(fallback)); !ok {
		fallback = Primary
	}
	if l, ok := ParseLanguage(query); ok {
		return l
	}
	if l, ok := ParseLanguage(cookie); ok {
		return l
	}
	if acceptLanguage == "" {
		return fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

// Dir returns the text direction for the html dir attribute
func Dir(l Language) string {
	if l == Arabic {
		return "rtl"
	}
	return "ltr"
}

// Label carries the same text in several display languages
type Label map[Language]string

// NewLabel builds a two-language label
func NewLabel(fr, ar string) Label {
	return Label{French: fr, Arabic: ar}
}

// Clone returns an independent copy of lb
func (lb Label) Clone() Label {
	if lb == nil {
		return nil
	}
	out := make(Label, len(lb))
	for l, text := range lb {
		out[l] = text
	}
	return out
}

// Text returns the label in l, falling back to the primary language and then
// to any translation present.
func (lb Label) Text(l Language) string {
	if s, ok := lb[l]; ok && s != "" {
		return s
	}
	if s, ok := lb[Primary]; ok && s != "" {
		return s
	}
	for _, lang := range Supported {
		if s := lb[lang]; s != "" {
			return s
		}
	}
	return ""
}

// FormatNumber renders v with the locale's digit grouping.
func FormatNumber(v float64, l Language) string {
	tag := language.French
	if l == Arabic {
		tag = language.MustParse("ar-DZ")
	}
	p := message.NewPrinter(tag)
	if v == float64(int64(v)) {
		return p.Sprintf("%d", int64(v))
	}
	return p.Sprintf("%.1f", v)
}
