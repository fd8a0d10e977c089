package seo

// OpenGraph carries og:* tags.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	Locale      string
}

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Meta is the head metadata of a rendered page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	Alternates  []Alternate
	JSONLD      []string
}

var ogLocales = map[string]string{
	"ja": "ja_JP",
	"en": "en_US",
}

// OGLocale maps a language code to an og:locale value.
func OGLocale(lang string) string {
	if v, ok := ogLocales[lang]; ok {
		return v
	}
	return lang
}
