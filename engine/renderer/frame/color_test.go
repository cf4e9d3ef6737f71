package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

func TestClearColorAdvance(t *testing.T) {
	c := frame.NewClearColor([3]uint8{}, [3]uint8{6, 3, 1})
	for i := 0; i < 50; i++ {
		c.Advance()
	}
	assert.Equal(t, [3]uint8{44, 150, 50}, c.Channels())
}

func TestClearColorWraps(t *testing.T) {
	c := frame.NewClearColor([3]uint8{250, 255, 0}, [3]uint8{6, 1, 0})
	c.Advance()
	assert.Equal(t, [3]uint8{0, 0, 0}, c.Channels())
}

func TestClearColorValue(t *testing.T) {
	c := frame.NewClearColor([3]uint8{128, 64, 0}, [3]uint8{})
	assert.Equal(t, frame.ClearValue{0.5, 0.25, 0, 1}, c.Value())

	c.Advance()
	assert.Equal(t, [3]uint8{128, 64, 0}, c.Channels())
}

func TestClearColorSetDeltas(t *testing.T) {
	c := frame.NewClearColor([3]uint8{1, 2, 3}, [3]uint8{6, 3, 1})
	c.SetDeltas([3]uint8{0, 0, 10})
	assert.Equal(t, [3]uint8{1, 2, 3}, c.Channels())

	c.Advance()
	assert.Equal(t, [3]uint8{1, 2, 13}, c.Channels())
}
