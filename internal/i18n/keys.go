package i18n

// Key names one entry of the closed dictionary key set. Locale files must
// define every key and nothing else.
type Key string

const (
	KeyHeroTitle    Key = "hero_title"
	KeyMenuRizTitle Key = "menu_riz_title"
	KeyMenu1Name    Key = "menu_1_name"
	KeyMenu1Desc    Key = "menu_1_desc"
	KeyMenu2Name    Key = "menu_2_name"
	KeyMenu2Desc    Key = "menu_2_desc"
	KeyMenu3Name    Key = "menu_3_name"
	KeyMenu3Desc    Key = "menu_3_desc"
	KeySoupeTitle   Key = "soupe_title"
	KeySoupeDesc    Key = "soupe_desc"
	KeyMariageTitle Key = "mariage_title"
	KeyMariageDesc  Key = "mariage_desc"
	KeyAddressText  Key = "address_text"
	KeyHoursText    Key = "hours_text"
)

var allKeys = []Key{
	KeyHeroTitle,
	KeyMenuRizTitle,
	KeyMenu1Name,
	KeyMenu1Desc,
	KeyMenu2Name,
	KeyMenu2Desc,
	KeyMenu3Name,
	KeyMenu3Desc,
	KeySoupeTitle,
	KeySoupeDesc,
	KeyMariageTitle,
	KeyMariageDesc,
	KeyAddressText,
	KeyHoursText,
}

var knownKeys = func() map[Key]struct{} {
	m := make(map[Key]struct{}, len(allKeys))
	for _, k := range allKeys {
		m[k] = struct{}{}
	}
	return m
}()

// Keys returns the full key set in declaration order.
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// Known reports whether k belongs to the key set.
func (k Key) Known() bool {
	_, ok := knownKeys[k]
	return ok
}

// Dictionary is the key to text mapping of one language.
type Dictionary struct {
	lang   Lang
	values map[Key]string
}

// Lang returns the language of the dictionary.
func (d Dictionary) Lang() Lang { return d.lang }

// Text returns the translation for k. A validated Store never misses; the
// bracketed placeholder makes a miss visible instead of rendering blank text.
func (d Dictionary) Text(k Key) string {
	if v, ok := d.values[k]; ok {
		return v
	}
	return Placeholder(k)
}

// Lookup is Text with an explicit presence flag.
func (d Dictionary) Lookup(k Key) (string, bool) {
	v, ok := d.values[k]
	return v, ok
}

// Len returns the number of entries.
func (d Dictionary) Len() int { return len(d.values) }

// Map returns a copy keyed by plain strings, for templates.
func (d Dictionary) Map() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[string(k)] = v
	}
	return out
}

// Placeholder is what a missing translation renders as.
func Placeholder(k Key) string {
	return "⟦" + string(k) + "⟧"
}
