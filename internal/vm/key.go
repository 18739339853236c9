package vm

import (
	"context"
	"fmt"
)

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// KeyFromByte converts a register value into a keypad key.
func KeyFromByte(b uint8) (Key, error) {
	if b >= KeyCount {
		return 0, &UnknownKeyError{Value: b}
	}
	return Key(b), nil
}

func (k Key) String() string {
	return fmt.Sprintf("%X", uint8(k))
}

// Keyboard is the key source the machine polls and waits on.
type Keyboard interface {
	// IsKeyDown reports whether key is currently held. It must not block.
	IsKeyDown(key Key) bool

	// WaitKeyDown blocks until a key is pressed and returns it.
	// The context is the only way to abort the wait; a background context
	// waits forever.
	WaitKeyDown(ctx context.Context) (Key, error)
}

// Frame is a snapshot of the screen handed to the display once per cycle.
type Frame struct {
	// Pixels holds ScreenWidth*ScreenHeight cells, row-major, each 0 or 1.
	// It aliases the machine's buffer and is only valid during Present.
	Pixels []uint8

	// Changed is set when the buffer was modified since the previous frame.
	Changed bool
}

// Display is the sink frames are presented to.
type Display interface {
	Present(frame Frame) error
	IsRunning() bool
}
