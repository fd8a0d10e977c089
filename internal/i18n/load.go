package i18n

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const localeExt = ".yaml"

type localeFile struct {
	Lang       string            `yaml:"lang"`
	Label      string            `yaml:"label"`
	Dictionary map[string]string `yaml:"dictionary"`
	Slides     []Slide           `yaml:"slides"`
}

// Load reads every <lang>.yaml file under dir in fsys and validates the set.
// The file stem is the language code; a `lang` field, when present, must agree.
func Load(fsys fs.FS, dir string, fallback Lang) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), localeExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	locales := make([]Locale, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		loc, err := parseLocale(strings.TrimSuffix(name, localeExt), raw)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		locales = append(locales, loc)
	}
	return New(fallback, locales...)
}

func parseLocale(stem string, raw []byte) (Locale, error) {
	var lf localeFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&lf); err != nil && !errors.Is(err, io.EOF) {
		return Locale{}, err
	}
	lang := strings.ToLower(strings.TrimSpace(stem))
	if lf.Lang != "" && !strings.EqualFold(lf.Lang, lang) {
		return Locale{}, fmt.Errorf("lang field %q does not match file name %q", lf.Lang, stem)
	}
	dict := make(map[Key]string, len(lf.Dictionary))
	for k, v := range lf.Dictionary {
		dict[Key(k)] = v
	}
	return Locale{
		Lang:       Lang(lang),
		Label:      lf.Label,
		Dictionary: dict,
		Slides:     lf.Slides,
	}, nil
}
