// Package handlers serves the pages and fragments of the site and turns
// visitor input into calls on the visitor's session view.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atimot/najilaboule/internal/dragscroll"
	"github.com/atimot/najilaboule/internal/format"
	"github.com/atimot/najilaboule/internal/httpx"
	"github.com/atimot/najilaboule/internal/i18n"
	"github.com/atimot/najilaboule/internal/language"
	"github.com/atimot/najilaboule/internal/middleware"
	"github.com/atimot/najilaboule/internal/observability"
	"github.com/atimot/najilaboule/internal/rotator"
	"github.com/atimot/najilaboule/internal/session"
)

const (
	maxGestureBody   = 4 << 10
	defaultHeartbeat = 25 * time.Second
	sseRetryMillis   = 3000
	eventSlide       = "slide"
	templateBase     = "base"
	templateContent  = "content"
	templatePhilo    = "philosophy"
	templateMenu     = "menu"
)

// Handlers holds the dependencies of the HTTP handlers.
type Handlers struct {
	Sessions      *session.Manager
	Source        *i18n.Source
	Templates     *Templates
	Text          *format.Renderer
	Analytics     Analytics
	BaseURL       string
	SecureCookies bool
	Heartbeat     time.Duration
	Now           func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// view loads the visitor's view, creating it with the negotiated language.
func (h *Handlers) view(w http.ResponseWriter, r *http.Request) (*session.View, bool) {
	store := h.Source.Store()
	v, err := h.Sessions.Load(w, r, func() i18n.Lang { return middleware.PreferredLang(store, r) })
	if err != nil {
		observability.FromContext(r.Context()).Warn("session unavailable", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "session unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	return v, true
}

// peek returns the visitor's view for read-only rendering. Visitors without
// a session get a throwaway view; release must be deferred.
func (h *Handlers) peek(w http.ResponseWriter, r *http.Request) (*session.View, func(), bool) {
	store := h.Source.Store()
	v, release, err := h.Sessions.Peek(r, func() i18n.Lang { return middleware.PreferredLang(store, r) })
	if err != nil {
		observability.FromContext(r.Context()).Warn("session unavailable", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "session unavailable", http.StatusServiceUnavailable))
		return nil, nil, false
	}
	return v, release, true
}

func (h *Handlers) page(r *http.Request, v *session.View) PageData {
	return BuildPage(v, PageOptions{
		CSRFToken: middleware.CSRFToken(r.Context()),
		BaseURL:   h.BaseURL,
		Analytics: h.Analytics,
		Text:      h.Text,
		Now:       h.now(),
	})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, v *session.View, name string, data any) {
	w.Header().Set("Content-Language", v.DocumentLang())
	w.Header().Set("Cache-Control", "no-store")
	if err := h.Templates.Render(w, http.StatusOK, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render failed", zap.String("template", name), zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("render_failed", "unable to render page", http.StatusInternalServerError))
	}
}

// Home renders the full page. A valid ?hl= switches the visitor's language
// first, so shared links open in the linked language.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	v, release, ok := h.peek(w, r)
	if !ok {
		return
	}
	defer release()
	if raw := r.URL.Query().Get("hl"); raw != "" {
		if lang, err := language.Parse(v.Language.Store(), raw); err == nil {
			_ = v.Language.SetLanguage(lang)
			middleware.RememberLang(w, lang, h.SecureCookies)
		}
	}
	h.render(w, r, v, templateBase, h.page(r, v))
}

// SetLanguage switches the visitor's language. Unknown codes are rejected
// with 400 and leave the current language untouched.
func (h *Handlers) SetLanguage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	raw := chi.URLParam(r, "code")
	lang, err := language.Parse(v.Language.Store(), raw)
	if err == nil {
		err = v.Language.SetLanguage(lang)
	}
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("unknown_language", err.Error()).
			WithDetails(map[string]any{"language": raw}))
		return
	}
	middleware.RememberLang(w, lang, h.SecureCookies)
	observability.FromContext(r.Context()).Debug("language switched", zap.String("language", string(lang)))

	if !middleware.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, v, templateContent, h.page(r, v))
}

// Philosophy renders the philosophy fragment.
func (h *Handlers) Philosophy(w http.ResponseWriter, r *http.Request) {
	v, release, ok := h.peek(w, r)
	if !ok {
		return
	}
	defer release()
	h.render(w, r, v, templatePhilo, h.page(r, v))
}

// SelectPhilosophy jumps the philosophy carousel to a slide.
func (h *Handlers) SelectPhilosophy(w http.ResponseWriter, r *http.Request) {
	h.selectSlide(w, r, func(v *session.View) *rotator.Rotator { return v.Philosophy }, templatePhilo, "/#philosophy")
}

// Menu renders the menu fragment.
func (h *Handlers) Menu(w http.ResponseWriter, r *http.Request) {
	v, release, ok := h.peek(w, r)
	if !ok {
		return
	}
	defer release()
	h.render(w, r, v, templateMenu, h.page(r, v))
}

// SelectMenu jumps the menu carousel to a card.
func (h *Handlers) SelectMenu(w http.ResponseWriter, r *http.Request) {
	h.selectSlide(w, r, func(v *session.View) *rotator.Rotator { return v.Menu }, templateMenu, "/#menu")
}

func (h *Handlers) selectSlide(w http.ResponseWriter, r *http.Request, pick func(*session.View) *rotator.Rotator, tmpl, fallback string) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	raw := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid_index", fmt.Sprintf("slide index %q is not a number", raw)))
		return
	}
	rot := pick(v)
	switch err := rot.Select(idx); {
	case errors.Is(err, rotator.ErrIndexOutOfRange):
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid_index", err.Error()).
			WithDetails(map[string]any{"index": idx, "count": rot.Len()}))
		return
	case errors.Is(err, rotator.ErrClosed):
		httpx.WriteError(r.Context(), w, httpx.NewError("session_closed", "session expired, reload the page", http.StatusGone))
		return
	case err != nil:
		httpx.WriteError(r.Context(), w, httpx.NewError("select_failed", err.Error(), http.StatusInternalServerError))
		return
	}
	if !middleware.IsHTMX(r.Context()) {
		http.Redirect(w, r, fallback, http.StatusSeeOther)
		return
	}
	h.render(w, r, v, tmpl, h.page(r, v))
}

// PhilosophyEvents streams philosophy index changes as server-sent events.
func (h *Handlers) PhilosophyEvents(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(v *session.View) *rotator.Rotator { return v.Philosophy })
}

// MenuEvents streams menu index changes as server-sent events.
func (h *Handlers) MenuEvents(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(v *session.View) *rotator.Rotator { return v.Menu })
}

// stream sends the rotator's index changes until the client goes away or the
// visitor's view is closed. Opening a stream mounts the view: it is created
// when missing and held against the idle sweep while the stream is open.
func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, pick func(*session.View) *rotator.Rotator) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	defer h.Sessions.Attach(v)()
	rot := pick(v)

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	updates := make(chan int, 1)
	cancel := rot.Subscribe(func(idx int) {
		select {
		case updates <- idx:
		default:
			// Keep only the newest index.
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- idx:
			default:
			}
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSlideEvent(w, rot.Index(), rot.Len(), true); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	beat := h.Heartbeat
	if beat <= 0 {
		beat = defaultHeartbeat
	}
	heartbeat := time.NewTicker(beat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case idx := <-updates:
			if err := writeSlideEvent(w, idx, rot.Len(), false); err != nil {
				return
			}
		case <-heartbeat.C:
			if rot.Closed() {
				_, _ = io.WriteString(w, "event: closed\ndata: {}\n\n")
				_ = rc.Flush()
				return
			}
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type slideEvent struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

func writeSlideEvent(w io.Writer, idx, count int, first bool) error {
	payload, err := json.Marshal(slideEvent{Index: idx, Count: count})
	if err != nil {
		return err
	}
	if first {
		if _, err := fmt.Fprintf(w, "retry: %d\n", sseRetryMillis); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventSlide, payload)
	return err
}

// GestureRequest is one pointer event forwarded from the menu carousel.
// Gesture and Seq order the events of one gesture; the browser may deliver
// them out of order over parallel connections.
type GestureRequest struct {
	Type    string  `json:"type"`
	Input   string  `json:"input,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Offset  float64 `json:"offset,omitempty"`
	Gesture string  `json:"gesture,omitempty"`
	Seq     uint64  `json:"seq,omitempty"`
}

// GestureResponse tells the browser what to do with the pointer event.
// Stale responses report the current state and must not be applied.
type GestureResponse struct {
	Offset         float64 `json:"offset"`
	Scroll         bool    `json:"scroll"`
	PreventDefault bool    `json:"preventDefault"`
	Dragging       bool    `json:"dragging"`
	Axis           string  `json:"axis"`
	Stale          bool    `json:"stale,omitempty"`
}

// MenuDrag feeds a pointer event to the visitor's menu drag controller.
func (h *Handlers) MenuDrag(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req GestureRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGestureBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid_gesture", "malformed gesture payload"))
		return
	}

	var in dragscroll.Input
	switch req.Type {
	case "start":
		parsed, err := dragscroll.ParseInput(req.Input)
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.BadRequest("unknown_input", err.Error()))
			return
		}
		in = parsed
	case "move", "end", "cancel", "leave":
	default:
		httpx.WriteError(r.Context(), w, httpx.BadRequest("unknown_gesture", fmt.Sprintf("unknown gesture type %q", req.Type)))
		return
	}

	var res dragscroll.Result
	applied := v.Gesture(req.Gesture, req.Seq, req.Type == "start", func(ctl *dragscroll.Controller) {
		switch req.Type {
		case "start":
			ctl.Start(in, req.X, req.Y, req.Offset)
			res.Offset = req.Offset
		case "move":
			res = ctl.Move(req.X, req.Y)
			if !res.Scroll {
				res.Offset = ctl.Offset()
			}
		case "end":
			ctl.End()
			res.Offset = ctl.Offset()
		default:
			ctl.Cancel()
			res.Offset = ctl.Offset()
		}
	})
	ctl := v.MenuDrag
	if !applied {
		observability.FromContext(r.Context()).Debug("stale gesture event dropped",
			zap.String("type", req.Type), zap.Uint64("seq", req.Seq))
		res = dragscroll.Result{Offset: ctl.Offset()}
	}

	httpx.WriteJSON(w, http.StatusOK, GestureResponse{
		Offset:         res.Offset,
		Scroll:         res.Scroll,
		PreventDefault: res.PreventDefault,
		Dragging:       ctl.Dragging(),
		Axis:           ctl.Axis().String(),
		Stale:          !applied,
	})
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
