// Package dragscroll turns click or touch drags on a horizontally scrolling
// container into scroll offsets without breaking vertical page scroll on
// touch devices.
package dragscroll

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
)

// DefaultSensitivity amplifies pointer travel into scroll travel.
const DefaultSensitivity = 2.0

// Input is the kind of pointer producing a gesture.
type Input int

const (
	InputMouse Input = iota
	InputTouch
)

func (i Input) String() string {
	switch i {
	case InputMouse:
		return "mouse"
	case InputTouch:
		return "touch"
	default:
		return fmt.Sprintf("input(%d)", int(i))
	}
}

// ErrUnknownInput is returned by ParseInput for unrecognised names.
var ErrUnknownInput = errors.New("dragscroll: unknown input kind")

// ParseInput maps "mouse", "pen" and "touch" to an Input.
func ParseInput(s string) (Input, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mouse", "pen":
		return InputMouse, nil
	case "touch":
		return InputTouch, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownInput, s)
	}
}

// Axis is the direction a gesture was locked to.
type Axis int

const (
	AxisUndetermined Axis = iota
	AxisHorizontal
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	default:
		return "undetermined"
	}
}

// Result tells the caller what to do with one move event.
type Result struct {
	// Offset is the scroll position to apply when Scroll is true.
	Offset float64
	// Scroll is true when the container should be moved to Offset.
	Scroll bool
	// PreventDefault is true when the browser's own handling (text
	// selection, native scroll) must be suppressed for this event.
	PreventDefault bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithSensitivity sets the drag amplification factor. Non-positive values
// keep the default.
func WithSensitivity(f float64) Option {
	return func(c *Controller) {
		if f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
			c.sensitivity = f
		}
	}
}

// WithBounds clamps computed offsets to [min, max].
func WithBounds(min, max float64) Option {
	return func(c *Controller) {
		if max >= min {
			c.bounded = true
			c.min, c.max = min, max
		}
	}
}

// Controller holds the drag state of one scroll container.
type Controller struct {
	sensitivity float64
	bounded     bool
	min, max    float64

	mu           sync.Mutex
	dragging     bool
	input        Input
	axis         Axis
	originX      float64
	originY      float64
	originOffset float64
	offset       float64
}

// New returns an idle controller.
func New(opts ...Option) *Controller {
	c := &Controller{sensitivity: DefaultSensitivity}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a gesture at (x, y) while the container is scrolled to offset.
// Mouse gestures are horizontal from the start; touch gestures decide on
// their first move.
func (c *Controller) Start(in Input, x, y, offset float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = true
	c.input = in
	c.originX, c.originY = x, y
	c.originOffset = offset
	c.offset = offset
	if in == InputMouse {
		c.axis = AxisHorizontal
	} else {
		c.axis = AxisUndetermined
	}
}

// Move reports the scroll offset for the pointer now at (x, y).
func (c *Controller) Move(x, y float64) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dragging {
		return Result{}
	}
	if c.axis == AxisUndetermined {
		dx := math.Abs(x - c.originX)
		dy := math.Abs(y - c.originY)
		if dy > dx {
			c.axis = AxisVertical
		} else {
			c.axis = AxisHorizontal
		}
	}
	if c.axis == AxisVertical {
		return Result{}
	}
	next := c.originOffset - (x-c.originX)*c.sensitivity
	if c.bounded {
		next = math.Max(c.min, math.Min(c.max, next))
	}
	c.offset = next
	return Result{Offset: next, Scroll: true, PreventDefault: true}
}

// End finishes the gesture.
func (c *Controller) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
	c.axis = AxisUndetermined
}

// Cancel finishes the gesture when the pointer leaves the container. It has
// the same effect as End.
func (c *Controller) Cancel() { c.End() }

// Dragging reports whether a gesture is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// Axis returns the axis of the current gesture.
func (c *Controller) Axis() Axis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axis
}

// Offset returns the last offset handed out, or the origin offset when the
// gesture has not scrolled yet.
func (c *Controller) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Sensitivity returns the amplification factor.
func (c *Controller) Sensitivity() float64 { return c.sensitivity }
