package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusDispatch(t *testing.T) {
	bus := NewEventBus()
	var got []string
	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "first")
		return data.Data.U32[0] == 1
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "second")
		return false
	}

	a, b := new(int), new(int)
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, a, first))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, a, first))
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, b, second))

	assert.False(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}))
	assert.Equal(t, []string{"first", "second"}, got)

	// a handled event stops at the first listener
	got = nil
	ctx := EventContext{}
	ctx.Data.U32[0] = 1
	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []string{"first"}, got)

	assert.True(t, bus.Unregister(EVENT_CODE_RESIZED, a))
	assert.False(t, bus.Unregister(EVENT_CODE_RESIZED, a))
	got = nil
	bus.Fire(EVENT_CODE_RESIZED, nil, ctx)
	assert.Equal(t, []string{"second"}, got)

	bus.Shutdown()
	got = nil
	bus.Fire(EVENT_CODE_RESIZED, nil, ctx)
	assert.Empty(t, got)
}

func TestInputStateFiresOnChange(t *testing.T) {
	bus := NewEventBus()
	var pressed, released []KeyCode
	listener := new(int)
	bus.Register(EVENT_CODE_KEY_PRESSED, listener, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		pressed = append(pressed, KeyCode(data.Data.U32[0]))
		return true
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, listener, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		released = append(released, KeyCode(data.Data.U32[0]))
		return true
	})

	in := NewInputState(bus)
	in.ProcessKey(KEY_W, true)
	in.ProcessKey(KEY_W, true)
	assert.True(t, in.IsKeyDown(KEY_W))
	assert.False(t, in.WasKeyDown(KEY_W))

	in.Update()
	assert.True(t, in.WasKeyDown(KEY_W))
	in.ProcessKey(KEY_W, false)
	in.ProcessKey(KEYS_MAX_KEYS, true)

	assert.Equal(t, []KeyCode{KEY_W}, pressed)
	assert.Equal(t, []KeyCode{KEY_W}, released)
}

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < avgCount; i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
	assert.Zero(t, m.FPS())

	for i := 0; i < 100; i++ {
		m.Update(0.010)
	}
	assert.Greater(t, m.FPS(), 90.0)
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())
	c.Start()
	c.Update()
	assert.GreaterOrEqual(t, c.Elapsed(), 0.0)
	c.Stop()
	before := c.Elapsed()
	c.Update()
	assert.Equal(t, before, c.Elapsed())
}
