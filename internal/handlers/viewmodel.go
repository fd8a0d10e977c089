package handlers

import (
	"html/template"
	"net/url"
	"time"

	"github.com/atimot/najilaboule/internal/format"
	"github.com/atimot/najilaboule/internal/i18n"
	"github.com/atimot/najilaboule/internal/nav"
	"github.com/atimot/najilaboule/internal/seo"
	"github.com/atimot/najilaboule/internal/session"
	"github.com/atimot/najilaboule/internal/site"
)

// PageData is the view model of the one-page site.
type PageData struct {
	Lang      string
	Title     string
	SEO       seo.Meta
	Analytics Analytics
	CSRFToken string
	Site      site.Info
	Nav       []nav.RenderedItem
	Languages []LangOption

	Hero       HeroData
	Philosophy PhilosophyData
	Menu       MenuData
	Experience []ExperienceBlock
	Access     AccessData
	Year       int
}

// LangOption is one entry of the language switch.
type LangOption struct {
	Code   string
	Label  string
	Active bool
}

// HeroData is the first screen.
type HeroData struct {
	Title   template.HTML
	Tagline string
	Image   string
}

// PhilosophySlide is one slide of the philosophy carousel. Every slide is
// rendered; only the active one is visible.
type PhilosophySlide struct {
	Index  int
	Number int
	Title  template.HTML
	Body   template.HTML
	Image  string
	Active bool
}

// PhilosophyData is the philosophy section and its live fragment.
type PhilosophyData struct {
	Slides     []PhilosophySlide
	Index      int
	Count      int
	IntervalMS int64
}

// MenuCard is one card of the menu carousel.
type MenuCard struct {
	Index    int
	ID       int
	Name     string
	Desc     string
	Image    string
	DotColor string
	Accent   bool
	Active   bool
}

// MenuData is the menu section and its fragment.
type MenuData struct {
	Title       string
	Cards       []MenuCard
	Index       int
	IntervalMS  int64
	Sensitivity float64
}

// ExperienceBlock is one image/text block.
type ExperienceBlock struct {
	ID       string
	Label    string
	Title    string
	Desc     template.HTML
	Image    string
	ImageAlt string
	Reverse  bool
}

// AccessData is the access section.
type AccessData struct {
	Name         string
	Area         string
	Address      template.HTML
	Hours        string
	Closed       string
	Phone        string
	PhoneLink    string
	MapURL       string
	MapEmbedURL  string
	InstagramURL string
}

// PageOptions carries the request-independent inputs of a page.
type PageOptions struct {
	CSRFToken string
	BaseURL   string
	Analytics Analytics
	Text      *format.Renderer
	Now       time.Time
}

// BuildPage assembles the page for a visitor. Language, dictionary and
// slides come from a single controller snapshot.
func BuildPage(v *session.View, opts PageOptions) PageData {
	lang, dict, slides := v.Language.View()
	store := v.Language.Store()
	text := opts.Text
	if text == nil {
		text = format.NewRenderer()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	docLang := v.DocumentLang()
	if docLang == "" {
		docLang = string(lang)
	}

	return PageData{
		Lang:       docLang,
		Title:      site.Restaurant.Name + " | " + site.Restaurant.Area,
		SEO:        buildSEO(store, lang, dict, opts.BaseURL),
		Analytics:  opts.Analytics,
		CSRFToken:  opts.CSRFToken,
		Site:       site.Restaurant,
		Nav:        nav.Build(""),
		Languages:  BuildLanguages(store, lang),
		Hero:       buildHero(dict),
		Philosophy: BuildPhilosophy(slides, v.Philosophy.Index(), v.Philosophy.Interval()),
		Menu:       BuildMenu(dict, v.Menu.Index(), v.Menu.Interval(), v.MenuDrag.Sensitivity()),
		Experience: buildExperience(dict, text),
		Access:     buildAccess(dict),
		Year:       now.Year(),
	}
}

// BuildLanguages lists the store languages with the default first.
func BuildLanguages(store *i18n.Store, active i18n.Lang) []LangOption {
	def := store.Default()
	out := []LangOption{{Code: string(def), Label: store.Label(def), Active: def == active}}
	for _, l := range store.Languages() {
		if l == def {
			continue
		}
		out = append(out, LangOption{Code: string(l), Label: store.Label(l), Active: l == active})
	}
	return out
}

func buildHero(dict i18n.Dictionary) HeroData {
	return HeroData{
		Title:   format.WithSeparator(dict.Text(i18n.KeyHeroTitle), "、"),
		Tagline: site.Restaurant.Tagline,
		Image:   site.HeroImage,
	}
}

// BuildPhilosophy renders the slides of one language with index active.
func BuildPhilosophy(slides []i18n.Slide, index int, interval time.Duration) PhilosophyData {
	out := PhilosophyData{
		Slides:     make([]PhilosophySlide, 0, len(slides)),
		Index:      index,
		Count:      len(slides),
		IntervalMS: interval.Milliseconds(),
	}
	for i, sl := range slides {
		img := ""
		if i < len(site.PhilosophyImages) {
			img = site.PhilosophyImages[i]
		}
		out.Slides = append(out.Slides, PhilosophySlide{
			Index:  i,
			Number: i + 1,
			Title:  format.WithSeparator(sl.Title, "、"),
			Body:   format.WithSeparator(sl.Body, "。"),
			Image:  img,
			Active: i == index,
		})
	}
	return out
}

// BuildMenu renders the menu cards with index active.
func BuildMenu(dict i18n.Dictionary, index int, interval time.Duration, sensitivity float64) MenuData {
	out := MenuData{
		Title:       dict.Text(i18n.KeyMenuRizTitle),
		Cards:       make([]MenuCard, 0, len(site.MenuItems)),
		Index:       index,
		IntervalMS:  interval.Milliseconds(),
		Sensitivity: sensitivity,
	}
	for i, m := range site.MenuItems {
		out.Cards = append(out.Cards, MenuCard{
			Index:    i,
			ID:       m.ID,
			Name:     dict.Text(m.NameKey),
			Desc:     dict.Text(m.DescKey),
			Image:    m.Image,
			DotColor: string(m.DotColor),
			Accent:   m.DotColor != site.DotWhite,
			Active:   i == index,
		})
	}
	return out
}

func buildExperience(dict i18n.Dictionary, text *format.Renderer) []ExperienceBlock {
	out := make([]ExperienceBlock, 0, len(site.Experience))
	for _, e := range site.Experience {
		out = append(out, ExperienceBlock{
			ID:       e.ID,
			Label:    e.Label,
			Title:    dict.Text(e.TitleKey),
			Desc:     text.Render(dict.Text(e.DescKey)),
			Image:    e.Image,
			ImageAlt: e.ImageAlt,
			Reverse:  e.Reverse,
		})
	}
	return out
}

func buildAccess(dict i18n.Dictionary) AccessData {
	address := dict.Text(i18n.KeyAddressText)
	hours, closed := format.SplitHours(dict.Text(i18n.KeyHoursText))
	return AccessData{
		Name:         site.Restaurant.Name,
		Area:         site.Restaurant.Area,
		Address:      format.Multiline(address, " "),
		Hours:        hours,
		Closed:       closed,
		Phone:        site.Restaurant.Phone,
		PhoneLink:    site.Restaurant.PhoneLink,
		MapURL:       site.Restaurant.GoogleMapsURL,
		MapEmbedURL:  mapEmbedURL(address, dict.Lang()),
		InstagramURL: site.Restaurant.InstagramURL,
	}
}

func mapEmbedURL(address string, lang i18n.Lang) string {
	q := url.Values{}
	q.Set("q", address)
	q.Set("output", "embed")
	q.Set("hl", string(lang))
	return "https://www.google.com/maps?" + q.Encode()
}

func buildSEO(store *i18n.Store, lang i18n.Lang, dict i18n.Dictionary, baseURL string) seo.Meta {
	title := site.Restaurant.Name + " | " + site.Restaurant.Area
	desc := dict.Text(i18n.KeyHeroTitle) + " " + site.Restaurant.Tagline
	image := ""
	if baseURL != "" {
		image = baseURL + "/assets/img/" + site.HeroImage
	}

	meta := seo.Meta{
		Title:       title,
		Description: desc,
		OG: seo.OpenGraph{
			Title:       title,
			Description: desc,
			Image:       image,
			Type:        "restaurant",
			Locale:      seo.OGLocale(string(lang)),
		},
	}
	if baseURL != "" {
		meta.Canonical = baseURL + "/?hl=" + string(lang)
		for _, l := range store.Languages() {
			meta.Alternates = append(meta.Alternates, seo.Alternate{Href: baseURL + "/?hl=" + string(l), Hreflang: string(l)})
		}
		meta.Alternates = append(meta.Alternates, seo.Alternate{Href: baseURL + "/", Hreflang: "x-default"})
	}

	sameAs := []string{site.Restaurant.InstagramURL}
	meta.JSONLD = append(meta.JSONLD, seo.JSON(seo.Restaurant(seo.RestaurantData{
		Name:         site.Restaurant.Name,
		URL:          baseURL,
		Image:        image,
		Telephone:    site.Restaurant.Phone,
		Address:      dict.Text(i18n.KeyAddressText),
		OpeningHours: site.Restaurant.OpeningHours,
		SameAs:       sameAs,
		Language:     string(lang),
	})))
	return meta
}
