// Package tty runs the machine in a text terminal: the screen is drawn with
// half-block characters and the keypad is read from raw stdin.
package tty

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kapitanov/chip8/internal/vm"
	"golang.org/x/term"
)

const (
	DefaultKeyHold    = 150 * time.Millisecond
	DefaultFrameDelay = 1200 * time.Microsecond

	keyQueueSize = 16
)

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

type Options struct {
	// KeyHold is how long a key counts as down after it was typed.
	// Terminals report presses only, never releases.
	KeyHold time.Duration

	// FrameDelay is slept after every presented frame.
	FrameDelay time.Duration
}

type keyEvent struct {
	key vm.Key
	at  time.Time
}

// Terminal implements vm.Display and vm.Keyboard on top of a terminal.
type Terminal struct {
	out io.Writer
	buf bytes.Buffer

	fd       int
	oldState *term.State

	mu      sync.Mutex
	pressed [vm.KeyCount]time.Time

	keys     chan keyEvent
	reboot   chan struct{}
	done     chan struct{}
	quitOnce sync.Once

	hold       time.Duration
	frameDelay time.Duration
	now        func() time.Time
}

// New switches in to raw mode when it is a terminal and starts reading keys
// from it. Shutdown restores the terminal.
func New(in *os.File, out io.Writer, opts Options) (*Terminal, error) {
	t := newTerminal(out, opts)

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("failed to set raw mode: %w", err)
		}
		t.fd = fd
		t.oldState = state
		slog.Debug("tty: raw mode enabled")
	}

	// hide cursor, clear screen
	if _, err := io.WriteString(out, "\x1b[?25l\x1b[2J"); err != nil {
		t.Shutdown()
		return nil, fmt.Errorf("failed to prepare terminal: %w", err)
	}

	// The reader stays blocked in Read after Shutdown and only exits once
	// stdin is closed.
	go t.readLoop(in)
	return t, nil
}

func newTerminal(out io.Writer, opts Options) *Terminal {
	if opts.KeyHold <= 0 {
		opts.KeyHold = DefaultKeyHold
	}

	return &Terminal{
		out:        out,
		keys:       make(chan keyEvent, keyQueueSize),
		reboot:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		hold:       opts.KeyHold,
		frameDelay: opts.FrameDelay,
		now:        time.Now,
	}
}

func (t *Terminal) Shutdown() {
	t.quit()

	if _, err := io.WriteString(t.out, "\x1b[?25h\r\n"); err != nil {
		slog.Error("failed to restore cursor", "err", err)
	}

	if t.oldState != nil {
		if err := term.Restore(t.fd, t.oldState); err != nil {
			slog.Error("failed to restore terminal", "err", err)
		}
		t.oldState = nil
	}
}

func (t *Terminal) quit() {
	t.quitOnce.Do(func() {
		close(t.done)
	})
}

func (t *Terminal) readLoop(r io.Reader) {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			t.handleByte(b)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("tty: read failed", "err", err)
			}
			t.quit()
			return
		}
	}
}

func (t *Terminal) handleByte(b byte) {
	switch b {
	case 0x03, 0x04: // Ctrl-C, Ctrl-D
		slog.Debug("tty: exit requested")
		t.quit()
		return
	case 0x7f, 0x08: // Backspace
		select {
		case t.reboot <- struct{}{}:
		default:
		}
		return
	}

	key, ok := keyMap(b)
	if !ok {
		return
	}

	ev := keyEvent{key: key, at: t.now()}

	t.mu.Lock()
	t.pressed[key] = ev.at
	t.mu.Unlock()

	select {
	case t.keys <- ev:
	default:
	}
}

func keyMap(b byte) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}

	switch b {
	case 'x':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q':
		return vm.Key4, true
	case 'w':
		return vm.Key5, true
	case 'e':
		return vm.Key6, true
	case 'a':
		return vm.Key7, true
	case 's':
		return vm.Key8, true
	case 'd':
		return vm.Key9, true
	case 'z':
		return vm.KeyA, true
	case 'c':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r':
		return vm.KeyD, true
	case 'f':
		return vm.KeyE, true
	case 'v':
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (t *Terminal) IsRunning() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// IsKeyDown reports whether key was typed within the hold window.
func (t *Terminal) IsKeyDown(key vm.Key) bool {
	t.mu.Lock()
	at := t.pressed[key]
	t.mu.Unlock()

	return !at.IsZero() && t.now().Sub(at) <= t.hold
}

// WaitKeyDown returns the next key typed. Presses older than the hold
// window are dropped.
func (t *Terminal) WaitKeyDown(ctx context.Context) (vm.Key, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.done:
			return 0, ErrQuit
		case <-t.reboot:
			t.resetKeys()
			return 0, ErrReboot
		case ev := <-t.keys:
			if t.now().Sub(ev.at) > t.hold {
				continue
			}
			return ev.key, nil
		}
	}
}

// resetKeys forgets queued and held keys so they do not leak into the
// rebooted program.
func (t *Terminal) resetKeys() {
drain:
	for {
		select {
		case <-t.keys:
		default:
			break drain
		}
	}

	t.mu.Lock()
	t.pressed = [vm.KeyCount]time.Time{}
	t.mu.Unlock()
}

func (t *Terminal) Present(frame vm.Frame) error {
	select {
	case <-t.reboot:
		t.resetKeys()
		return ErrReboot
	default:
	}

	if frame.Changed {
		t.buf.Reset()
		render(&t.buf, frame.Pixels)
		if _, err := t.out.Write(t.buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}

	if t.frameDelay > 0 {
		time.Sleep(t.frameDelay)
	}
	return nil
}

// render draws two pixel rows per text line.
func render(buf *bytes.Buffer, pixels []uint8) {
	buf.WriteString("\x1b[H")

	for y := 0; y < vm.ScreenHeight; y += 2 {
		for x := 0; x < vm.ScreenWidth; x++ {
			top := pixels[y*vm.ScreenWidth+x] != 0
			bottom := pixels[(y+1)*vm.ScreenWidth+x] != 0

			switch {
			case top && bottom:
				buf.WriteRune('█')
			case top:
				buf.WriteRune('▀')
			case bottom:
				buf.WriteRune('▄')
			default:
				buf.WriteByte(' ')
			}
		}
		buf.WriteString("\r\n")
	}
}
