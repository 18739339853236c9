package hal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/kapitanov/chip8/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512

	DefaultFrameDelay = 1200 * time.Microsecond

	// how long WaitKeyDown blocks in SDL before re-checking its context
	waitPollTimeout = 50
)

// HAL is an SDL window that implements both vm.Display and vm.Keyboard.
type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	keypad     [vm.KeyCount]bool
	running    bool
	frameDelay time.Duration
}

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

func New(frameDelay time.Duration) (*HAL, error) {
	if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window")
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	return &HAL{
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		running:         true,
		frameDelay:      frameDelay,
	}, nil
}

func (hal *HAL) Shutdown() {
	if err := hal.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := hal.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

// IsRunning reports false once the window has been closed.
func (hal *HAL) IsRunning() bool {
	return hal.running
}

func (hal *HAL) IsKeyDown(key vm.Key) bool {
	return hal.keypad[key]
}

// WaitKeyDown pumps SDL events until a keypad key goes down.
func (hal *HAL) WaitKeyDown(ctx context.Context) (vm.Key, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		e := sdl.WaitEventTimeout(waitPollTimeout)
		if e == nil {
			continue
		}

		key, pressed, err := hal.processEvent(e)
		if err != nil {
			return 0, err
		}
		if !hal.running {
			return 0, ErrQuit
		}
		if pressed {
			return key, nil
		}
	}
}

// Present draws the frame if it changed, handles pending input and waits
// for the next frame.
func (hal *HAL) Present(frame vm.Frame) error {
	if frame.Changed {
		if err := hal.draw(frame.Pixels); err != nil {
			return err
		}
	}

	if err := hal.readInput(); err != nil {
		return err
	}

	time.Sleep(hal.frameDelay)
	return nil
}

func (hal *HAL) readInput() error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		if _, _, err := hal.processEvent(e); err != nil {
			return err
		}
	}

	return nil
}

// processEvent updates the keypad from e. It reports the key that went
// down, if any.
func (hal *HAL) processEvent(e sdl.Event) (vm.Key, bool, error) {
	switch e.GetType() {
	case sdl.QUIT:
		slog.Debug("hal: exit requested")
		hal.running = false

	case sdl.KEYDOWN:
		ke := e.(*sdl.KeyboardEvent)
		if ke.Keysym.Scancode == sdl.SCANCODE_BACKSPACE {
			return 0, false, ErrReboot
		}

		if key, ok := keyMap(ke); ok {
			hal.keypad[key] = true
			return key, ke.Repeat == 0, nil
		}

	case sdl.KEYUP:
		if key, ok := keyMap(e.(*sdl.KeyboardEvent)); ok {
			hal.keypad[key] = false
		}
	}

	return 0, false, nil
}

func keyMap(e *sdl.KeyboardEvent) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch e.Keysym.Scancode {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) draw(pixels []uint8) error {
	const (
		bgColor = uint32(0x000000)
		fgColor = uint32(0xbea700)
	)

	for i, p := range pixels {
		color := bgColor
		if p != 0 {
			color = fgColor
		}

		hal.backBuffer[i] = color
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}
