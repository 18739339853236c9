package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestScreenDrawSpriteCollision(t *testing.T) {
	s := NewScreen()

	collision := s.DrawSprite([]uint8{0xFF}, 0, 0)
	assert.False(t, collision)
	for x := 0; x < 8; x++ {
		assert.Equal(t, uint8(1), s.Pixel(x, 0), "x=%d", x)
	}
	assert.Equal(t, uint8(0), s.Pixel(8, 0))

	collision = s.DrawSprite([]uint8{0xFF}, 0, 0)
	assert.True(t, collision)
	if diff := cmp.Diff(make([]uint8, ScreenWidth*ScreenHeight), s.Buffer()); diff != "" {
		t.Errorf("buffer not cleared (-want +got):\n%s", diff)
	}
}

func TestScreenDrawSpritePartialOverlap(t *testing.T) {
	s := NewScreen()

	assert.False(t, s.DrawSprite([]uint8{0xF0}, 0, 0))
	assert.True(t, s.DrawSprite([]uint8{0x18}, 0, 0))

	want := []uint8{1, 1, 1, 0, 1, 0, 0, 0}
	assert.Equal(t, want, s.Buffer()[:8])
}

func TestScreenDrawSpriteWraps(t *testing.T) {
	s := NewScreen()

	s.DrawSprite([]uint8{0xC0, 0xC0}, ScreenWidth-1, ScreenHeight-1)

	assert.Equal(t, uint8(1), s.Pixel(ScreenWidth-1, ScreenHeight-1))
	assert.Equal(t, uint8(1), s.Pixel(0, ScreenHeight-1))
	assert.Equal(t, uint8(1), s.Pixel(ScreenWidth-1, 0))
	assert.Equal(t, uint8(1), s.Pixel(0, 0))

	lit := 0
	for _, c := range s.Buffer() {
		lit += int(c)
	}
	assert.Equal(t, 4, lit)
}

func TestScreenDrawSpriteLargeCoordinates(t *testing.T) {
	s := NewScreen()

	s.DrawSprite([]uint8{0x80}, ScreenWidth+3, ScreenHeight+2)
	assert.Equal(t, uint8(1), s.Pixel(3, 2))
}

func TestScreenClear(t *testing.T) {
	s := NewScreen()
	s.DrawSprite([]uint8{0xAA, 0x55}, 10, 10)
	s.frame()
	assert.False(t, s.Dirty())

	s.Clear()

	assert.True(t, s.Dirty())
	if diff := cmp.Diff(make([]uint8, ScreenWidth*ScreenHeight), s.Buffer()); diff != "" {
		t.Errorf("buffer not cleared (-want +got):\n%s", diff)
	}
}

func TestScreenFrameResetsDirty(t *testing.T) {
	s := NewScreen()

	f := s.frame()
	assert.True(t, f.Changed)
	assert.Len(t, f.Pixels, ScreenWidth*ScreenHeight)

	assert.False(t, s.frame().Changed)

	s.DrawSprite([]uint8{0x01}, 0, 0)
	assert.True(t, s.frame().Changed)
}
