package handlers

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	najilaboule "github.com/atimot/najilaboule"
	"github.com/atimot/najilaboule/internal/format"
	"github.com/atimot/najilaboule/internal/i18n"
	"github.com/atimot/najilaboule/internal/rotator"
	"github.com/atimot/najilaboule/internal/session"
	"github.com/atimot/najilaboule/internal/site"
	"github.com/atimot/najilaboule/internal/testutil"
)

type stillTicker struct{ c chan time.Time }

func (t stillTicker) C() <-chan time.Time { return t.c }
func (stillTicker) Reset(time.Duration) {}
func (stillTicker) Stop() {}

func newView(t *testing.T, initial i18n.Lang) *session.View {
	t.Helper()
	mgr, err := session.NewManager(i18n.NewSource(testutil.Store(t)), session.Config{
		View: session.ViewConfig{
			PhilosophyInterval: 10 * time.Second,
			MenuInterval:       5 * time.Second,
			MenuItems:          len(site.MenuItems),
			DragSensitivity:    2,
			RotatorOptions: []rotator.Option{rotator.WithTicker(func(time.Duration) rotator.Ticker {
				return stillTicker{c: make(chan time.Time)}
			})},
		},
	})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	v, err := mgr.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), func() i18n.Lang { return initial })
	require.NoError(t, err)
	return v
}

func TestBuildLanguagesPutsDefaultFirst(t *testing.T) {
	store := testutil.Store(t)

	got := BuildLanguages(store, "en")
	require.Len(t, got, 2)
	assert.Equal(t, LangOption{Code: "ja", Label: "JP"}, got[0])
	assert.Equal(t, LangOption{Code: "en", Label: "EN", Active: true}, got[1])
}

func TestBuildPhilosophyMarksActiveSlide(t *testing.T) {
	slides, ok := testutil.Store(t).Slides("ja")
	require.True(t, ok)

	got := BuildPhilosophy(slides, 1, 10*time.Second)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, int64(10000), got.IntervalMS)
	require.Len(t, got.Slides, 3)
	for i, s := range got.Slides {
		assert.Equal(t, i == 1, s.Active, "slide %d", i)
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, site.PhilosophyImages[i], s.Image)
	}
	assert.Contains(t, string(got.Slides[1].Title), "湯気に咲く、<br>")
	assert.Contains(t, string(got.Slides[1].Body), "解きほぐす。<br>")
}

func TestBuildMenuUsesDictionary(t *testing.T) {
	dict, ok := testutil.Store(t).Dictionary("en")
	require.True(t, ok)

	got := BuildMenu(dict, 2, 5*time.Second, 2)
	assert.Equal(t, "Riz - Onigiri (Rice Ball)", got.Title)
	assert.Equal(t, int64(5000), got.IntervalMS)
	require.Len(t, got.Cards, 3)
	assert.Equal(t, "Silver Shari - Kiwami", got.Cards[0].Name)
	assert.False(t, got.Cards[0].Accent)
	assert.True(t, got.Cards[1].Accent)
	assert.True(t, got.Cards[2].Active)
	assert.Equal(t, "red", got.Cards[2].DotColor)
}

func TestBuildPageFollowsViewState(t *testing.T) {
	v := newView(t, "ja")
	require.NoError(t, v.Menu.Select(1))

	page := BuildPage(v, PageOptions{CSRFToken: "tok", Now: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, "ja", page.Lang)
	assert.Equal(t, "tok", page.CSRFToken)
	assert.Equal(t, 2026, page.Year)
	assert.Equal(t, 1, page.Menu.Index)
	assert.Equal(t, 0, page.Philosophy.Index)
	assert.Equal(t, "営業時間: 18:30 - 23:30", page.Access.Hours)
	assert.Equal(t, "定休日: 土日祝日", page.Access.Closed)
	assert.Contains(t, page.Access.MapEmbedURL, "hl=ja")
	assert.Empty(t, page.SEO.Canonical)
	require.Len(t, page.Experience, 2)
	assert.Equal(t, "ほどける、汁。", page.Experience[0].Title)

	require.NoError(t, v.Language.SetLanguage("en"))
	page = BuildPage(v, PageOptions{BaseURL: "https://example.test"})
	assert.Equal(t, "en", page.Lang)
	assert.Equal(t, "Savoring Rice in the Ginza Night.", string(page.Hero.Title))
	assert.Equal(t, "https://example.test/?hl=en", page.SEO.Canonical)
	assert.Equal(t, "en_US", page.SEO.OG.Locale)
	require.Len(t, page.SEO.Alternates, 3)
	assert.Equal(t, "x-default", page.SEO.Alternates[2].Hreflang)
	require.Len(t, page.SEO.JSONLD, 1)
	assert.Contains(t, page.SEO.JSONLD[0], "Naji la boule")
}

func TestTemplatesRenderFragments(t *testing.T) {
	sub, err := fs.Sub(najilaboule.Templates, "templates")
	require.NoError(t, err)
	tmpl, err := NewTemplates(sub, false)
	require.NoError(t, err)

	v := newView(t, "en")
	require.NoError(t, v.Philosophy.Select(2))
	page := BuildPage(v, PageOptions{Text: format.NewRenderer()})

	body, err := tmpl.Execute(templatePhilo, page)
	require.NoError(t, err)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, 1, doc.Find("article:not([hidden])").Length())
	assert.Equal(t, "Bliss Melting into the Evening.", testutil.Text(doc.Find("article.is-active h3")))

	_, err = tmpl.Execute("missing", page)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, tmpl.Render(rec, http.StatusOK, templateMenu, page))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `data-drag="/menu/drag"`)
}

func TestNewTemplatesRequiresFiles(t *testing.T) {
	_, err := NewTemplates(fstest.MapFS{"README.txt": {Data: []byte("no templates")}}, false)
	assert.Error(t, err)
}
