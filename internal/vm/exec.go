package vm

import (
	"context"
	"fmt"
)

// execute applies instr to the machine state. Program counter updates are
// the last side effect of every case.
func (vm *VM) execute(ctx context.Context, instr Instruction) error {
	v := &vm.registers

	switch i := instr.(type) {
	case ClearScreen:
		vm.screen.Clear()
		vm.next()

	case Return:
		if vm.sp == 0 {
			return ErrStackUnderflow
		}
		vm.sp--
		vm.pc = vm.stack[vm.sp]

	case Jump:
		vm.pc = uint16(i.Addr)

	case Call:
		if vm.sp == StackSize {
			return ErrStackOverflow
		}
		vm.stack[vm.sp] = vm.pc + InstructionSize
		vm.sp++
		vm.pc = uint16(i.Addr)

	case SkipEqualByte:
		vm.skipIf(v[i.X] == i.KK)

	case SkipNotEqualByte:
		vm.skipIf(v[i.X] != i.KK)

	case SkipEqual:
		vm.skipIf(v[i.X] == v[i.Y])

	case SkipNotEqual:
		vm.skipIf(v[i.X] != v[i.Y])

	case LoadByte:
		v[i.X] = i.KK
		vm.next()

	case AddByte:
		v[i.X] += i.KK
		vm.next()

	case Load:
		v[i.X] = v[i.Y]
		vm.next()

	case Or:
		v[i.X] |= v[i.Y]
		vm.next()

	case And:
		v[i.X] &= v[i.Y]
		vm.next()

	case Xor:
		v[i.X] ^= v[i.Y]
		vm.next()

	case Add:
		sum := uint16(v[i.X]) + uint16(v[i.Y])
		v[i.X] = uint8(sum)

		// Without strict carry VF is only ever set here, never cleared.
		if sum > 0xFF {
			v[FlagRegister] = 1
		} else if vm.strictCarry {
			v[FlagRegister] = 0
		}
		vm.next()

	case Sub:
		vm.withFlag(vm.noBorrow(v[i.X], v[i.Y]), func() { v[i.X] -= v[i.Y] })
		vm.next()

	case Subn:
		vm.withFlag(vm.noBorrow(v[i.Y], v[i.X]), func() { v[i.X] = v[i.Y] - v[i.X] })
		vm.next()

	case Shr:
		vm.withFlag(v[i.X]&0x1, func() { v[i.X] >>= 1 })
		vm.next()

	case Shl:
		vm.withFlag(v[i.X]>>7, func() { v[i.X] <<= 1 })
		vm.next()

	case LoadI:
		vm.index = uint16(i.Addr)
		vm.next()

	case JumpV0:
		vm.pc = uint16(i.Addr) + uint16(v[0])

	case Random:
		v[i.X] = uint8(vm.random.IntN(256)) & i.KK
		vm.next()

	case Draw:
		sprite, err := vm.memoryRange(vm.index, int(i.N))
		if err != nil {
			return err
		}

		collision := vm.screen.DrawSprite(sprite, int(v[i.X]), int(v[i.Y]))
		v[FlagRegister] = 0
		if collision {
			v[FlagRegister] = 1
		}
		vm.next()

	case SkipKeyPressed:
		key, err := KeyFromByte(v[i.X])
		if err != nil {
			return err
		}
		vm.skipIf(vm.keyboard.IsKeyDown(key))

	case SkipKeyNotPressed:
		key, err := KeyFromByte(v[i.X])
		if err != nil {
			return err
		}
		vm.skipIf(!vm.keyboard.IsKeyDown(key))

	case LoadDelayTimer:
		v[i.X] = vm.delayTimer
		vm.next()

	case WaitKeyPressed:
		key, err := vm.keyboard.WaitKeyDown(ctx)
		if err != nil {
			return fmt.Errorf("wait for key: %w", err)
		}
		if key >= KeyCount {
			return &UnknownKeyError{Value: uint8(key)}
		}

		v[i.X] = uint8(key)
		// pc stays on the wait instruction until the next cycle starts
		vm.resumePending = true

	case LoadToDelayTimer:
		vm.delayTimer = v[i.X]
		vm.next()

	case LoadToSoundTimer:
		vm.soundTimer = v[i.X]
		vm.next()

	case AddI:
		vm.index += uint16(v[i.X])
		vm.next()

	case LoadSprite:
		vm.index = FontAddr + uint16(v[i.X])*FontGlyphSize
		vm.next()

	case LoadBCD:
		mem, err := vm.memoryRange(vm.index, 3)
		if err != nil {
			return err
		}

		x := v[i.X]
		mem[0] = x / 100
		mem[1] = (x / 10) % 10
		mem[2] = x % 10
		vm.next()

	case SaveRegisters:
		mem, err := vm.memoryRange(vm.index, int(i.X)+1)
		if err != nil {
			return err
		}
		copy(mem, v[:i.X+1])
		vm.next()

	case LoadRegisters:
		mem, err := vm.memoryRange(vm.index, int(i.X)+1)
		if err != nil {
			return err
		}
		copy(v[:i.X+1], mem)
		vm.next()

	default:
		return fmt.Errorf("%w: %T", ErrUnhandledInstruction, instr)
	}

	return nil
}

func (vm *VM) next() {
	vm.pc += InstructionSize
}

func (vm *VM) skipIf(cond bool) {
	if cond {
		vm.pc += 2 * InstructionSize
	} else {
		vm.pc += InstructionSize
	}
}

// withFlag writes flag to VF and runs op, which updates the destination
// from the current register values. VF is written first, so op sees the new
// flag when an operand is VF. With strict carry op runs first and VF ends up
// holding the flag.
func (vm *VM) withFlag(flag uint8, op func()) {
	if vm.strictCarry {
		op()
		vm.registers[FlagRegister] = flag
		return
	}

	vm.registers[FlagRegister] = flag
	op()
}

// noBorrow computes VF for a - b.
func (vm *VM) noBorrow(a, b uint8) uint8 {
	if a > b || (vm.strictCarry && a == b) {
		return 1
	}
	return 0
}
