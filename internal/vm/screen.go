package vm

// SpriteWidth is the fixed width of every sprite in pixels.
const SpriteWidth = 8

// Screen is the monochrome frame buffer. Cells are only ever changed by
// Clear and DrawSprite.
type Screen struct {
	buffer [ScreenWidth * ScreenHeight]uint8
	dirty  bool
}

func NewScreen() *Screen {
	return &Screen{dirty: true}
}

// Clear resets every cell to 0.
func (s *Screen) Clear() {
	s.buffer = [ScreenWidth * ScreenHeight]uint8{}
	s.dirty = true
}

// DrawSprite XORs sprite onto the buffer with its top-left corner at (x, y).
// Each byte is one row, most significant bit leftmost. Coordinates wrap
// around both edges. It reports whether any set cell was turned off.
func (s *Screen) DrawSprite(sprite []uint8, x, y int) bool {
	s.dirty = true

	collision := false
	for row, bits := range sprite {
		for col := 0; col < SpriteWidth; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}

			i := screenAddr(x+col, y+row)
			if s.buffer[i] == 1 {
				collision = true
			}
			s.buffer[i] ^= 1
		}
	}

	return collision
}

// Pixel returns the cell at (x, y), wrapping like DrawSprite.
func (s *Screen) Pixel(x, y int) uint8 {
	return s.buffer[screenAddr(x, y)]
}

// Buffer returns the backing cells. Callers must not modify them.
func (s *Screen) Buffer() []uint8 {
	return s.buffer[:]
}

// Dirty reports whether the buffer changed since the last frame was taken.
func (s *Screen) Dirty() bool {
	return s.dirty
}

func (s *Screen) frame() Frame {
	f := Frame{Pixels: s.buffer[:], Changed: s.dirty}
	s.dirty = false
	return f
}

func screenAddr(x, y int) int {
	x %= ScreenWidth
	if x < 0 {
		x += ScreenWidth
	}
	y %= ScreenHeight
	if y < 0 {
		y += ScreenHeight
	}

	return ScreenWidth*y + x
}
