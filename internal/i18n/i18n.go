package i18n

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Lang is a language code such as "ja" or "en".
type Lang string

func (l Lang) String() string { return string(l) }

// Slide is one title/body pair of the philosophy carousel.
type Slide struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Locale is the raw content for one language before validation.
type Locale struct {
	Lang       Lang
	Label      string
	Dictionary map[Key]string
	Slides     []Slide
}

// Store is the validated, read-only translation table. It is safe for
// concurrent use because nothing mutates it after New returns.
type Store struct {
	langs    []Lang
	labels   map[Lang]string
	dicts    map[Lang]Dictionary
	slides   map[Lang][]Slide
	fallback Lang
	matcher  language.Matcher
	tags     []language.Tag
}

// New validates the supplied locales and builds a Store. Every defect is
// reported at once in a *ValidationError.
func New(fallback Lang, locales ...Locale) (*Store, error) {
	ve := &ValidationError{}
	s := &Store{
		labels:   map[Lang]string{},
		dicts:    map[Lang]Dictionary{},
		slides:   map[Lang][]Slide{},
		fallback: fallback,
	}

	slideCount := -1
	var slideRef Lang
	for _, loc := range locales {
		lang := Lang(strings.ToLower(strings.TrimSpace(string(loc.Lang))))
		if lang == "" {
			ve.add("", "empty language code")
			continue
		}
		if _, dup := s.dicts[lang]; dup {
			ve.add(lang, "duplicate locale")
			continue
		}
		tag, err := language.Parse(string(lang))
		if err != nil {
			ve.add(lang, fmt.Sprintf("invalid language tag: %v", err))
			continue
		}

		values := make(map[Key]string, len(loc.Dictionary))
		for k, v := range loc.Dictionary {
			if !k.Known() {
				ve.add(lang, fmt.Sprintf("unknown key %q", k))
				continue
			}
			values[k] = v
		}
		for _, k := range Keys() {
			if _, ok := values[k]; !ok {
				ve.add(lang, fmt.Sprintf("missing key %q", k))
			}
		}

		if len(loc.Slides) == 0 {
			ve.add(lang, "no slides")
		}
		for i, sl := range loc.Slides {
			if strings.TrimSpace(sl.Title) == "" {
				ve.add(lang, fmt.Sprintf("slide %d has an empty title", i))
			}
		}
		switch {
		case slideCount < 0:
			slideCount = len(loc.Slides)
			slideRef = lang
		case len(loc.Slides) != slideCount:
			ve.add(lang, fmt.Sprintf("has %d slides, %s has %d", len(loc.Slides), slideRef, slideCount))
		}

		slides := make([]Slide, len(loc.Slides))
		copy(slides, loc.Slides)

		label := strings.TrimSpace(loc.Label)
		if label == "" {
			label = strings.ToUpper(string(lang))
		}

		s.langs = append(s.langs, lang)
		s.labels[lang] = label
		s.dicts[lang] = Dictionary{lang: lang, values: values}
		s.slides[lang] = slides
		s.tags = append(s.tags, tag)
	}

	if len(locales) == 0 {
		ve.add("", "no locales")
	}
	if _, ok := s.dicts[fallback]; !ok {
		ve.add(fallback, "default language has no locale")
	}
	if ve.HasProblems() {
		return nil, ve
	}

	// The matcher prefers its first tag on ties, so put the fallback first.
	sort.SliceStable(s.tags, func(i, j int) bool {
		return s.tags[i].String() == string(fallback) && s.tags[j].String() != string(fallback)
	})
	s.matcher = language.NewMatcher(s.tags)
	return s, nil
}

// Languages returns the supported language codes in load order.
func (s *Store) Languages() []Lang {
	out := make([]Lang, len(s.langs))
	copy(out, s.langs)
	return out
}

// Default returns the language used when nothing else is known.
func (s *Store) Default() Lang { return s.fallback }

// Supports reports whether lang is one of the loaded codes.
func (s *Store) Supports(lang Lang) bool {
	_, ok := s.dicts[lang]
	return ok
}

// Label returns the short switcher label for lang ("JP", "EN").
func (s *Store) Label(lang Lang) string { return s.labels[lang] }

// Dictionary returns the dictionary for lang.
func (s *Store) Dictionary(lang Lang) (Dictionary, bool) {
	d, ok := s.dicts[lang]
	return d, ok
}

// Slides returns a copy of the slide sequence for lang.
func (s *Store) Slides(lang Lang) ([]Slide, bool) {
	sl, ok := s.slides[lang]
	if !ok {
		return nil, false
	}
	out := make([]Slide, len(sl))
	copy(out, sl)
	return out, true
}

// SlideCount is the shared length of every language's slide sequence.
func (s *Store) SlideCount() int {
	return len(s.slides[s.fallback])
}

// Resolve chooses the best supported language for an Accept-Language header,
// honouring q-values. Unparseable or unmatched headers yield the default.
func (s *Store) Resolve(acceptLang string) Lang {
	acceptLang = strings.TrimSpace(acceptLang)
	if acceptLang == "" {
		return s.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return s.fallback
	}
	_, idx, conf := s.matcher.Match(prefs...)
	if conf == language.No {
		return s.fallback
	}
	base, _ := s.tags[idx].Base()
	lang := Lang(base.String())
	if !s.Supports(lang) {
		return s.fallback
	}
	return lang
}
