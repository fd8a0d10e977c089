package dragscroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMouseDragAppliesAmplifiedOffset(t *testing.T) {
	c := New()
	c.Start(InputMouse, 50, 10, 100)
	require.True(t, c.Dragging())
	require.Equal(t, AxisHorizontal, c.Axis())

	res := c.Move(30, 200)
	assert.True(t, res.Scroll)
	assert.True(t, res.PreventDefault)
	assert.Equal(t, 140.0, res.Offset)
	assert.Equal(t, 140.0, c.Offset())
}

func TestMoveWithoutGestureIsNoop(t *testing.T) {
	c := New()
	res := c.Move(10, 10)
	assert.Equal(t, Result{}, res)
	assert.False(t, c.Dragging())
}

func TestTouchLocksVerticalForWholeGesture(t *testing.T) {
	c := New()
	c.Start(InputTouch, 100, 100, 40)
	require.Equal(t, AxisUndetermined, c.Axis())

	first := c.Move(105, 120)
	assert.Equal(t, Result{}, first)
	assert.Equal(t, AxisVertical, c.Axis())

	later := c.Move(300, 121)
	assert.False(t, later.Scroll)
	assert.False(t, later.PreventDefault)
	assert.Equal(t, AxisVertical, c.Axis())
	assert.Equal(t, 40.0, c.Offset())
}

func TestTouchLocksHorizontalOnTieAndStaysLocked(t *testing.T) {
	c := New()
	c.Start(InputTouch, 0, 0, 0)

	res := c.Move(-10, 10)
	require.Equal(t, AxisHorizontal, c.Axis())
	assert.True(t, res.Scroll)
	assert.True(t, res.PreventDefault)
	assert.Equal(t, 20.0, res.Offset)

	res = c.Move(-10, 400)
	assert.Equal(t, AxisHorizontal, c.Axis())
	assert.True(t, res.PreventDefault)
	assert.Equal(t, 20.0, res.Offset)
}

func TestEndAndCancelResetGesture(t *testing.T) {
	for name, finish := range map[string]func(*Controller){
		"end":    (*Controller).End,
		"cancel": (*Controller).Cancel,
	} {
		t.Run(name, func(t *testing.T) {
			c := New()
			c.Start(InputTouch, 0, 0, 0)
			c.Move(0, 50)
			require.Equal(t, AxisVertical, c.Axis())

			finish(c)
			assert.False(t, c.Dragging())
			assert.Equal(t, AxisUndetermined, c.Axis())
			assert.Equal(t, Result{}, c.Move(100, 0))

			c.Start(InputTouch, 0, 0, 0)
			res := c.Move(-30, 1)
			assert.Equal(t, AxisHorizontal, c.Axis())
			assert.Equal(t, 60.0, res.Offset)
		})
	}
}

func TestSensitivityAndBounds(t *testing.T) {
	c := New(WithSensitivity(1), WithBounds(0, 50))
	c.Start(InputMouse, 100, 0, 10)

	assert.Equal(t, 30.0, c.Move(80, 0).Offset)
	assert.Equal(t, 50.0, c.Move(0, 0).Offset)
	assert.Equal(t, 0.0, c.Move(500, 0).Offset)

	ignored := New(WithSensitivity(-3))
	assert.Equal(t, DefaultSensitivity, ignored.Sensitivity())
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput("Touch")
	require.NoError(t, err)
	assert.Equal(t, InputTouch, in)

	in, err = ParseInput("pen")
	require.NoError(t, err)
	assert.Equal(t, InputMouse, in)

	_, err = ParseInput("joystick")
	require.ErrorIs(t, err, ErrUnknownInput)
}
