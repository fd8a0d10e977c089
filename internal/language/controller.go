// Package language holds the active language of one visitor and derives the
// dictionary and slides shown to them.
package language

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/atimot/najilaboule/internal/i18n"
)

// ErrUnknownLanguage is returned for codes outside the store's language set.
var ErrUnknownLanguage = errors.New("language: unknown language code")

// Document receives the document-level language attribute (the `lang`
// attribute of the rendered page).
type Document interface {
	SetLang(code string)
}

// DocumentFunc adapts a function to Document.
type DocumentFunc func(code string)

// SetLang implements Document.
func (f DocumentFunc) SetLang(code string) { f(code) }

type snapshot struct {
	lang   i18n.Lang
	dict   i18n.Dictionary
	slides []i18n.Slide
}

// Option customises a Controller.
type Option func(*Controller)

// WithDocument sets the sink updated on every language change.
func WithDocument(d Document) Option {
	return func(c *Controller) { c.doc = d }
}

// WithInitial starts the controller on lang instead of the store default.
// Unknown codes are ignored.
func WithInitial(lang i18n.Lang) Option {
	return func(c *Controller) {
		if c.store.Supports(lang) {
			c.initial = lang
		}
	}
}

// Controller owns the active language. Reads go through an immutable
// snapshot swapped atomically, so a reader never sees the dictionary of one
// language paired with the slides of another.
type Controller struct {
	store   *i18n.Store
	doc     Document
	initial i18n.Lang

	mu  sync.Mutex
	cur atomic.Pointer[snapshot]

	subMu   sync.Mutex
	subs    map[int]func(i18n.Lang)
	nextSub int
}

// NewController returns a controller on the store default language.
func NewController(store *i18n.Store, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		initial: store.Default(),
		subs:    map[int]func(i18n.Lang){},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cur.Store(c.build(c.initial))
	if c.doc != nil {
		c.doc.SetLang(string(c.initial))
	}
	return c
}

func (c *Controller) build(lang i18n.Lang) *snapshot {
	dict, _ := c.store.Dictionary(lang)
	slides, _ := c.store.Slides(lang)
	return &snapshot{lang: lang, dict: dict, slides: slides}
}

// SetLanguage makes code the active language. Unknown codes are rejected;
// setting the active language again changes nothing and notifies no one.
func (c *Controller) SetLanguage(code i18n.Lang) error {
	if !c.store.Supports(code) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	c.mu.Lock()
	if c.cur.Load().lang == code {
		c.mu.Unlock()
		return nil
	}
	c.cur.Store(c.build(code))
	if c.doc != nil {
		c.doc.SetLang(string(code))
	}
	c.mu.Unlock()

	c.notify(code)
	return nil
}

// Language returns the active code.
func (c *Controller) Language() i18n.Lang { return c.cur.Load().lang }

// Dictionary returns the dictionary of the active language.
func (c *Controller) Dictionary() i18n.Dictionary { return c.cur.Load().dict }

// Slides returns a copy of the active slide sequence.
func (c *Controller) Slides() []i18n.Slide {
	sl := c.cur.Load().slides
	out := make([]i18n.Slide, len(sl))
	copy(out, sl)
	return out
}

// View returns language, dictionary and slides from a single snapshot.
func (c *Controller) View() (i18n.Lang, i18n.Dictionary, []i18n.Slide) {
	s := c.cur.Load()
	out := make([]i18n.Slide, len(s.slides))
	copy(out, s.slides)
	return s.lang, s.dict, out
}

// Store returns the translation store backing the controller.
func (c *Controller) Store() *i18n.Store { return c.store }

// Subscribe registers fn for language changes.
func (c *Controller) Subscribe(fn func(i18n.Lang)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify(lang i18n.Lang) {
	c.subMu.Lock()
	fns := make([]func(i18n.Lang), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(lang)
	}
}

// Parse validates untrusted input (a query or path value) against the store.
func Parse(store *i18n.Store, raw string) (i18n.Lang, error) {
	lang := i18n.Lang(strings.ToLower(strings.TrimSpace(raw)))
	if !store.Supports(lang) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, raw)
	}
	return lang, nil
}
