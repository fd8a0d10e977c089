package httpserver_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	najilaboule "github.com/atimot/najilaboule"
	"github.com/atimot/najilaboule/internal/format"
	"github.com/atimot/najilaboule/internal/handlers"
	"github.com/atimot/najilaboule/internal/httpserver"
	"github.com/atimot/najilaboule/internal/i18n"
	"github.com/atimot/najilaboule/internal/rotator"
	"github.com/atimot/najilaboule/internal/session"
	"github.com/atimot/najilaboule/internal/site"
	"github.com/atimot/najilaboule/internal/testutil"
)

// ServerConfig collects the knobs tests may turn.
type ServerConfig struct {
	View      session.ViewConfig
	Heartbeat time.Duration
	BaseURL   string
	Analytics handlers.Analytics
	Now       func() time.Time
}

// ServerOption customises the test server.
type ServerOption func(*ServerConfig)

// WithRotatorOptions passes options (usually a fake ticker) to every rotator.
func WithRotatorOptions(opts ...rotator.Option) ServerOption {
	return func(cfg *ServerConfig) { cfg.View.RotatorOptions = append(cfg.View.RotatorOptions, opts...) }
}

// WithIntervals overrides the carousel intervals.
func WithIntervals(philosophy, menu time.Duration) ServerOption {
	return func(cfg *ServerConfig) {
		cfg.View.PhilosophyInterval = philosophy
		cfg.View.MenuInterval = menu
	}
}

// WithHeartbeat sets the server-sent event heartbeat.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(cfg *ServerConfig) { cfg.Heartbeat = d }
}

// WithBaseURL sets the absolute site URL used in head metadata.
func WithBaseURL(u string) ServerOption {
	return func(cfg *ServerConfig) { cfg.BaseURL = u }
}

// WithSessionClock replaces the clock the session manager uses for idle
// tracking.
func WithSessionClock(now func() time.Time) ServerOption {
	return func(cfg *ServerConfig) { cfg.Now = now }
}

// WithAnalytics enables analytics snippets.
func WithAnalytics(a handlers.Analytics) ServerOption {
	return func(cfg *ServerConfig) { cfg.Analytics = a }
}

// Server is a running site plus a cookie-keeping client that does not
// follow redirects.
type Server struct {
	*httptest.Server
	Sessions *session.Manager
	Client   *http.Client
}

// NewServer starts the full HTTP stack on the embedded locales, templates
// and assets.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	cfg := ServerConfig{
		View: session.ViewConfig{
			PhilosophyInterval: 10 * time.Second,
			MenuInterval:       5 * time.Second,
			MenuItems:          len(site.MenuItems),
			DragSensitivity:    2,
		},
		Heartbeat: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	src := i18n.NewSource(testutil.Store(t))
	mgr, err := session.NewManager(src, session.Config{View: cfg.View, Now: cfg.Now})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	t.Cleanup(mgr.Close)

	tmplFS, err := fs.Sub(najilaboule.Templates, "templates")
	if err != nil {
		t.Fatalf("templates fs: %v", err)
	}
	tmpl, err := handlers.NewTemplates(tmplFS, false)
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	assets, err := fs.Sub(najilaboule.Public, "public/assets")
	if err != nil {
		t.Fatalf("assets fs: %v", err)
	}

	h := &handlers.Handlers{
		Sessions:  mgr,
		Source:    src,
		Templates: tmpl,
		Text:      format.NewRenderer(),
		Analytics: cfg.Analytics,
		BaseURL:   cfg.BaseURL,
		Heartbeat: cfg.Heartbeat,
	}
	ts := httptest.NewServer(httpserver.Router(httpserver.Config{Handlers: h, Assets: assets}))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
	return &Server{Server: ts, Sessions: mgr, Client: client}
}

// Get fetches path with the session cookies and returns status and body.
func (s *Server) Get(t testing.TB, path string, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return s.do(t, req)
}

// Post sends body to path. When csrf is non-empty it is sent in the header.
func (s *Server) Post(t testing.TB, path, contentType, body, csrf string, htmx bool) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return s.do(t, req)
}

func (s *Server) do(t testing.TB, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

// View returns the stored view behind the client's session cookie.
func (s *Server) View(t testing.TB) (*session.View, bool) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+"/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if s.Client.Jar != nil {
		for _, c := range s.Client.Jar.Cookies(req.URL) {
			req.AddCookie(c)
		}
	}
	return s.Sessions.Lookup(req)
}

// Stream opens an event stream on path. next blocks for the following slide
// event and returns its payload; heartbeats are skipped. close ends the
// stream.
func (s *Server) Stream(t testing.TB, path string) (next func() map[string]int, closeFn func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+path, nil)
	if err != nil {
		cancel()
		t.Fatalf("new request: %v", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("GET %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "text/event-stream" {
		resp.Body.Close()
		cancel()
		t.Fatalf("GET %s: status %d, content type %q", path, resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	closeFn = func() {
		cancel()
		resp.Body.Close()
	}
	t.Cleanup(closeFn)

	reader := bufio.NewReader(resp.Body)
	next = func() map[string]int {
		t.Helper()
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read %s: %v", path, err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				if event != "slide" {
					t.Fatalf("unexpected %q event on %s", event, path)
				}
				var out map[string]int
				if err := json.Unmarshal([]byte(data), &out); err != nil {
					t.Fatalf("decode %q: %v", data, err)
				}
				return out
			}
		}
	}
	return next, closeFn
}

// Bootstrap loads the home page and returns the CSRF token it carries.
func (s *Server) Bootstrap(t testing.TB, acceptLanguage string) string {
	t.Helper()
	header := map[string]string{}
	if acceptLanguage != "" {
		header["Accept-Language"] = acceptLanguage
	}
	resp, body := s.Get(t, "/", header)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /: status %d", resp.StatusCode)
	}
	token, _ := testutil.ParseHTML(t, body).Find(`meta[name="csrf-token"]`).Attr("content")
	if token == "" {
		t.Fatalf("no csrf token in page")
	}
	return token
}
