package vm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	DefaultSeed = uint64(0x649bba8a048482fd)
)

type VM struct {
	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    int               // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	screen *Screen

	// set by a completed key wait; pc moves past the wait on the next cycle
	resumePending bool

	keyboard Keyboard
	display  Display

	random      *rand.Rand
	seed        uint64
	strictCarry bool
	logger      *slog.Logger

	program []byte
}

type Option func(*VM)

// WithSeed sets the seed of the random byte source used by RND.
func WithSeed(seed uint64) Option {
	return func(vm *VM) {
		vm.seed = seed
	}
}

// WithStrictCarry makes ADD clear VF when there is no carry, SUB/SUBN
// report "no borrow" (VF=1) on equal operands, and SUB/SUBN/SHR/SHL write
// VF after the result register.
func WithStrictCarry(strict bool) Option {
	return func(vm *VM) {
		vm.strictCarry = strict
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(vm *VM) {
		vm.logger = logger
	}
}

// New creates a machine with program loaded at ProgramStart. The keyboard
// and display are used for the lifetime of the machine.
func New(program []byte, keyboard Keyboard, display Display, opts ...Option) (*VM, error) {
	if len(program) > MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	vm := &VM{
		screen:   NewScreen(),
		keyboard: keyboard,
		display:  display,
		seed:     DefaultSeed,
		logger:   slog.Default(),
		program:  program,
	}

	for _, opt := range opts {
		opt(vm)
	}

	vm.Reset()
	return vm, nil
}

// Reset puts the machine back into its power-on state with the program
// reloaded.
func (vm *VM) Reset() {
	vm.pc = ProgramStart
	vm.index = 0
	vm.sp = 0
	vm.resumePending = false

	vm.screen.Clear()
	vm.stack = [StackSize]uint16{}
	vm.registers = [RegisterCount]uint8{}
	vm.memory = [MemorySize]uint8{}

	vm.logger.Debug("load font", "at", fmt.Sprintf("0x%04x", FontAddr), "n", len(chip8Font))
	copy(vm.memory[FontAddr:], chip8Font[:])

	vm.logger.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(vm.program))
	copy(vm.memory[ProgramStart:], vm.program)

	vm.delayTimer = 0
	vm.soundTimer = 0

	vm.random = rand.New(rand.NewPCG(vm.seed, vm.seed))
}

// Run cycles the machine and presents a frame after every cycle for as long
// as the display is running. It returns nil once the display stops and the
// first error otherwise.
func (vm *VM) Run(ctx context.Context) error {
	for vm.display.IsRunning() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := vm.Cycle(ctx); err != nil {
			return err
		}

		if err := vm.display.Present(vm.screen.frame()); err != nil {
			return err
		}
	}

	return nil
}

// Cycle fetches, decodes and executes one instruction, then updates timers.
// A FX0A instruction blocks inside Cycle until the keyboard reports a key.
func (vm *VM) Cycle(ctx context.Context) error {
	if vm.resumePending {
		vm.resumePending = false
		vm.pc += InstructionSize
	}

	pc := vm.pc
	opcode, err := vm.fetchOpcode()
	if err != nil {
		return fmt.Errorf("fetch at 0x%04x: %w", pc, err)
	}

	instr, err := Decode(opcode)
	if err != nil {
		return fmt.Errorf("decode at 0x%04x: %w", pc, err)
	}

	if vm.logger.Enabled(ctx, slog.LevelDebug) {
		vm.logger.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	if err := vm.execute(ctx, instr); err != nil {
		return fmt.Errorf("exec %q at 0x%04x: %w", instr, pc, err)
	}

	// Update timers
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}

	if vm.soundTimer > 0 {
		vm.soundTimer--
	}

	return nil
}

func (vm *VM) fetchOpcode() (uint16, error) {
	bs, err := vm.memoryRange(vm.pc, InstructionSize)
	if err != nil {
		return 0, err
	}

	return uint16(bs[0])<<8 | uint16(bs[1]), nil // Op code is two bytes
}

func (vm *VM) memoryRange(addr uint16, n int) ([]uint8, error) {
	end := int(addr) + n
	if end > MemorySize {
		return nil, fmt.Errorf("%w: 0x%04x+%d", ErrMemoryOutOfRange, addr, n)
	}

	return vm.memory[addr:end], nil
}

func (vm *VM) PC() uint16 {
	return vm.pc
}

func (vm *VM) Index() uint16 {
	return vm.index
}

func (vm *VM) Register(r Register) uint8 {
	return vm.registers[r&0xF]
}

func (vm *VM) DelayTimer() uint8 {
	return vm.delayTimer
}

// SoundTimer returns the sound timer; a tone should play while it is nonzero.
func (vm *VM) SoundTimer() uint8 {
	return vm.soundTimer
}

func (vm *VM) StackDepth() int {
	return vm.sp
}

func (vm *VM) Screen() *Screen {
	return vm.screen
}
