// Package session keeps the per-visitor views alive between requests. A
// visitor is identified by a signed cookie; the view itself stays in memory.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/atimot/najilaboule/internal/i18n"
)

const (
	defaultCookieName    = "naji_session"
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = time.Minute
	defaultMaxViews      = 10000
)

// ErrClosed is returned once the manager has been shut down.
var ErrClosed = errors.New("session: manager closed")

// ErrInvalidConfig indicates missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Config controls the cookie codec and view lifetime. MaxViews caps the
// stored views; past it the least recently used view without an open
// stream is closed.
type Config struct {
	CookieName    string
	HashKey       []byte
	BlockKey      []byte
	Secure        bool
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxViews      int
	View          ViewConfig
	Now           func() time.Time
	Logger        *zap.Logger
}

type cookieData struct {
	ID string `json:"id"`
}

// Manager maps visitor cookies to live views.
type Manager struct {
	cfg    Config
	codec  *securecookie.SecureCookie
	source *i18n.Source
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	views  map[string]*View
	closed bool
}

// NewManager builds a Manager. Missing keys are generated, which means
// sessions do not survive a restart; that only costs visitors their
// carousel position.
func NewManager(src *i18n.Source, cfg Config) (*Manager, error) {
	if src == nil || src.Store() == nil {
		return nil, fmt.Errorf("%w: locale source is required", ErrInvalidConfig)
	}
	if cfg.View.MenuItems <= 0 {
		return nil, fmt.Errorf("%w: menu item count must be positive", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.MaxViews <= 0 {
		cfg.MaxViews = defaultMaxViews
	}
	if len(cfg.HashKey) == 0 {
		cfg.HashKey = securecookie.GenerateRandomKey(32)
		if cfg.BlockKey == nil {
			cfg.BlockKey = securecookie.GenerateRandomKey(32)
		}
	}
	if cfg.HashKey == nil {
		return nil, fmt.Errorf("%w: unable to generate hash key", ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.View.Logger == nil {
		cfg.View.Logger = cfg.Logger
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(0)

	return &Manager{
		cfg:    cfg,
		codec:  codec,
		source: src,
		now:    nowFn,
		logger: cfg.Logger,
		views:  make(map[string]*View),
	}, nil
}

// Load returns the visitor's view, creating one (and setting the cookie) when
// the request carries no usable session. initial picks the language of a
// new view; it is not consulted for existing views.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request, initial func() i18n.Lang) (*View, error) {
	now := m.now()
	if id, ok := m.decode(r); ok {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}
		v, found := m.views[id]
		m.mu.Unlock()
		if found {
			v.touch(now)
			return v, nil
		}
	}

	lang := m.source.Store().Default()
	if initial != nil {
		lang = initial()
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	v, err := newView(id, m.source.Store(), lang, m.cfg.View, now)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		v.Close()
		return nil, ErrClosed
	}
	m.views[id] = v
	evicted := m.evictLocked(id)
	count := len(m.views)
	m.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		m.logger.Info("session view evicted", zap.Int("max_views", m.cfg.MaxViews))
	}
	if err := m.writeCookie(w, id); err != nil {
		m.remove(id)
		return nil, err
	}
	m.logger.Debug("session view created",
		zap.String("language", string(v.Language.Language())),
		zap.Int("views", count),
	)
	return v, nil
}

// evictLocked drops the least recently used view other than keep once the
// cap is exceeded. Views held by a stream are skipped, so the cap is soft
// while every stored view is streaming.
func (m *Manager) evictLocked(keep string) *View {
	if len(m.views) <= m.cfg.MaxViews {
		return nil
	}
	var (
		oldestID string
		oldest   *View
	)
	for id, v := range m.views {
		if id == keep || v.Attached() {
			continue
		}
		if oldest == nil || v.LastActive().Before(oldest.LastActive()) {
			oldestID, oldest = id, v
		}
	}
	if oldest != nil {
		delete(m.views, oldestID)
	}
	return oldest
}

// Peek returns the visitor's stored view, or a throwaway view in the
// initial language when the request has no live session. Throwaway views
// are not stored and set no cookie, so visitors that only read pages leave
// nothing behind. release must be called once rendering is done.
func (m *Manager) Peek(r *http.Request, initial func() i18n.Lang) (v *View, release func(), err error) {
	if v, ok := m.Lookup(r); ok {
		return v, func() {}, nil
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, nil, ErrClosed
	}
	lang := m.source.Store().Default()
	if initial != nil {
		lang = initial()
	}
	v, err = newView("", m.source.Store(), lang, m.cfg.View, m.now())
	if err != nil {
		return nil, nil, err
	}
	return v, v.Close, nil
}

// Attach holds v for an open event stream: the sweeper and the view cap
// leave it alone until release is called. Release marks the view active so
// its idle timeout starts when the stream ends.
func (m *Manager) Attach(v *View) (release func()) {
	v.streams.Add(1)
	v.touch(m.now())
	var once sync.Once
	return func() {
		once.Do(func() {
			v.touch(m.now())
			v.streams.Add(-1)
		})
	}
}

// Lookup returns the existing view for the request without creating one.
func (m *Manager) Lookup(r *http.Request) (*View, bool) {
	id, ok := m.decode(r)
	if !ok {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	v, found := m.views[id]
	if found {
		v.touch(m.now())
	}
	return v, found
}

// Len reports the number of live views.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Sweep closes views idle for longer than the idle timeout and returns how
// many were closed. Views held by an open stream are never idle.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var stale []*View
	for id, v := range m.views {
		if !v.Attached() && v.LastActive().Before(cutoff) {
			stale = append(stale, v)
			delete(m.views, id)
		}
	}
	remaining := len(m.views)
	m.mu.Unlock()

	for _, v := range stale {
		v.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("idle session views closed",
			zap.Int("closed", len(stale)),
			zap.Int("remaining", remaining),
		)
	}
	return len(stale)
}

// Run sweeps idle views until ctx is done, then closes the manager.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close tears down every view. Further Loads return ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	views := m.views
	m.views = make(map[string]*View)
	m.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
	m.logger.Info("session manager closed", zap.Int("views", len(views)))
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	v, ok := m.views[id]
	delete(m.views, id)
	m.mu.Unlock()
	if ok {
		v.Close()
	}
}

func (m *Manager) decode(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return "", false
	}
	var data cookieData
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &data); err != nil || data.ID == "" {
		return "", false
	}
	return data.ID, true
}

func (m *Manager) writeCookie(w http.ResponseWriter, id string) error {
	encoded, err := m.codec.Encode(m.cfg.CookieName, cookieData{ID: id})
	if err != nil {
		return fmt.Errorf("session: encode cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func newID() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
