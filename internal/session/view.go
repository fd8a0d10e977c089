package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/atimot/najilaboule/internal/dragscroll"
	"github.com/atimot/najilaboule/internal/i18n"
	"github.com/atimot/najilaboule/internal/language"
	"github.com/atimot/najilaboule/internal/rotator"
)

// View is the interactive state of one visitor: the active language, the
// two carousels and the menu drag gesture. It lives until the visitor goes
// idle or the server shuts down.
type View struct {
	ID         string
	Language   *language.Controller
	Philosophy *rotator.Rotator
	Menu       *rotator.Rotator
	MenuDrag   *dragscroll.Controller

	docLang    atomic.Value
	lastActive atomic.Int64
	streams    atomic.Int32
	closeOnce  sync.Once

	gestureMu  sync.Mutex
	gestureID  string
	gestureSeq uint64
}

// ViewConfig describes how new views are built.
type ViewConfig struct {
	PhilosophyInterval time.Duration
	MenuInterval       time.Duration
	MenuItems          int
	DragSensitivity    float64
	RotatorOptions     []rotator.Option
	Logger             *zap.Logger
}

func newView(id string, store *i18n.Store, initial i18n.Lang, cfg ViewConfig, now time.Time) (*View, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &View{ID: id, MenuDrag: dragscroll.New(dragscroll.WithSensitivity(cfg.DragSensitivity))}
	v.docLang.Store(string(store.Default()))
	v.lastActive.Store(now.UnixNano())

	v.Language = language.NewController(store,
		language.WithInitial(initial),
		language.WithDocument(language.DocumentFunc(func(code string) { v.docLang.Store(code) })),
	)
	v.docLang.Store(string(v.Language.Language()))

	philoOpts := append([]rotator.Option{rotator.WithName("philosophy"), rotator.WithLogger(logger)}, cfg.RotatorOptions...)
	philo, err := rotator.New(store.SlideCount(), cfg.PhilosophyInterval, philoOpts...)
	if err != nil {
		return nil, fmt.Errorf("session: philosophy rotator: %w", err)
	}
	menuOpts := append([]rotator.Option{rotator.WithName("menu"), rotator.WithLogger(logger)}, cfg.RotatorOptions...)
	menu, err := rotator.New(cfg.MenuItems, cfg.MenuInterval, menuOpts...)
	if err != nil {
		philo.Close()
		return nil, fmt.Errorf("session: menu rotator: %w", err)
	}
	v.Philosophy = philo
	v.Menu = menu
	return v, nil
}

// DocumentLang is the value for the page's lang attribute, as last written
// by the language controller.
func (v *View) DocumentLang() string {
	s, _ := v.docLang.Load().(string)
	return s
}

// LastActive reports when the view was last used.
func (v *View) LastActive() time.Time {
	return time.Unix(0, v.lastActive.Load())
}

func (v *View) touch(now time.Time) { v.lastActive.Store(now.UnixNano()) }

// Attached reports whether an event stream currently holds the view.
func (v *View) Attached() bool { return v.streams.Load() > 0 }

// Gesture applies fn to the menu drag controller unless the event is stale.
// Events tagged with a gesture id must belong to the current gesture and
// carry a sequence number above the last applied one; a start event opens a
// new gesture. Untagged events are always applied. It reports whether fn ran.
func (v *View) Gesture(id string, seq uint64, start bool, fn func(*dragscroll.Controller)) bool {
	v.gestureMu.Lock()
	defer v.gestureMu.Unlock()
	if id != "" {
		switch {
		case id == v.gestureID && seq <= v.gestureSeq:
			return false
		case start:
			v.gestureID = id
		case id != v.gestureID:
			return false
		}
		v.gestureSeq = seq
	}
	fn(v.MenuDrag)
	return true
}

// Close stops both rotators and abandons any gesture in progress. It is safe
// to call more than once.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.Philosophy.Close()
		v.Menu.Close()
		v.MenuDrag.Cancel()
	})
}
