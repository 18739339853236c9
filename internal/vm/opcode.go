package vm

import "fmt"

// Register indexes one of the V0-VF registers.
type Register uint8

// FlagRegister is VF, overwritten by carry, borrow, shift and collision.
const FlagRegister = Register(0xF)

func (r Register) String() string {
	return fmt.Sprintf("V%X", uint8(r))
}

// Address is a 12-bit memory address taken from an instruction word.
type Address uint16

func (a Address) String() string {
	return fmt.Sprintf("0x%03X", uint16(a))
}

// Instruction is a decoded opcode. The set of implementations is closed:
// only the types in this file satisfy it.
type Instruction interface {
	fmt.Stringer
	instruction()
}

type (
	// 00E0 - Clear screen
	ClearScreen struct{}
	// 00EE - Return from subroutine
	Return struct{}
	// 1NNN - Jump to NNN (also 0NNN)
	Jump struct{ Addr Address }
	// 2NNN - Call subroutine at NNN
	Call struct{ Addr Address }
	// 3XKK - Skip next if VX == KK
	SkipEqualByte struct {
		X  Register
		KK uint8
	}
	// 4XKK - Skip next if VX != KK
	SkipNotEqualByte struct {
		X  Register
		KK uint8
	}
	// 5XY0 - Skip next if VX == VY
	SkipEqual struct{ X, Y Register }
	// 9XY0 - Skip next if VX != VY
	SkipNotEqual struct{ X, Y Register }
	// 6XKK - VX = KK
	LoadByte struct {
		X  Register
		KK uint8
	}
	// 7XKK - VX += KK, no carry
	AddByte struct {
		X  Register
		KK uint8
	}
	// 8XY0 - VX = VY
	Load struct{ X, Y Register }
	// 8XY1 - VX |= VY
	Or struct{ X, Y Register }
	// 8XY2 - VX &= VY
	And struct{ X, Y Register }
	// 8XY3 - VX ^= VY
	Xor struct{ X, Y Register }
	// 8XY4 - VX += VY, carry in VF
	Add struct{ X, Y Register }
	// 8XY5 - VX -= VY, VF = VX > VY
	Sub struct{ X, Y Register }
	// 8XY6 - VF = VX & 1, VX >>= 1
	Shr struct{ X, Y Register }
	// 8XYE - VF = VX >> 7, VX <<= 1
	Shl struct{ X, Y Register }
	// 8XY7 - VX = VY - VX, VF = VY > VX
	Subn struct{ X, Y Register }
	// ANNN - I = NNN
	LoadI struct{ Addr Address }
	// BNNN - Jump to NNN + V0
	JumpV0 struct{ Addr Address }
	// CXKK - VX = random byte & KK
	Random struct {
		X  Register
		KK uint8
	}
	// DXYN - Draw N-row sprite from I at (VX, VY), collision in VF
	Draw struct {
		X, Y Register
		N    uint8
	}
	// EX9E - Skip next if key VX is down
	SkipKeyPressed struct{ X Register }
	// EXA1 - Skip next if key VX is up
	SkipKeyNotPressed struct{ X Register }
	// FX07 - VX = delay timer
	LoadDelayTimer struct{ X Register }
	// FX0A - Wait for a key press, store it in VX
	WaitKeyPressed struct{ X Register }
	// FX15 - delay timer = VX
	LoadToDelayTimer struct{ X Register }
	// FX18 - sound timer = VX
	LoadToSoundTimer struct{ X Register }
	// FX1E - I += VX
	AddI struct{ X Register }
	// FX29 - I = address of font glyph VX
	LoadSprite struct{ X Register }
	// FX33 - Store BCD of VX at I, I+1, I+2
	LoadBCD struct{ X Register }
	// FX55 - Store V0..VX at I
	SaveRegisters struct{ X Register }
	// FX65 - Load V0..VX from I
	LoadRegisters struct{ X Register }
)

// Decode maps an instruction word to its Instruction. Words outside the
// instruction set fail with *UnknownOpcodeError.
func Decode(opcode uint16) (Instruction, error) {
	var (
		addr = Address(opcode & 0x0FFF)
		x    = Register((opcode & 0x0F00) >> 8)
		y    = Register((opcode & 0x00F0) >> 4)
		kk   = uint8(opcode & 0x00FF)
		n    = uint8(opcode & 0x000F)
	)

	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			return ClearScreen{}, nil
		case 0x00EE:
			return Return{}, nil
		default:
			// 0NNN machine calls are treated as plain jumps.
			return Jump{Addr: addr}, nil
		}

	case 0x1000:
		return Jump{Addr: addr}, nil

	case 0x2000:
		return Call{Addr: addr}, nil

	case 0x3000:
		return SkipEqualByte{X: x, KK: kk}, nil

	case 0x4000:
		return SkipNotEqualByte{X: x, KK: kk}, nil

	case 0x5000:
		return SkipEqual{X: x, Y: y}, nil

	case 0x6000:
		return LoadByte{X: x, KK: kk}, nil

	case 0x7000:
		return AddByte{X: x, KK: kk}, nil

	case 0x8000:
		switch n {
		case 0x0:
			return Load{X: x, Y: y}, nil
		case 0x1:
			return Or{X: x, Y: y}, nil
		case 0x2:
			return And{X: x, Y: y}, nil
		case 0x3:
			return Xor{X: x, Y: y}, nil
		case 0x4:
			return Add{X: x, Y: y}, nil
		case 0x5:
			return Sub{X: x, Y: y}, nil
		case 0x6:
			return Shr{X: x, Y: y}, nil
		case 0x7:
			return Subn{X: x, Y: y}, nil
		case 0xE:
			return Shl{X: x, Y: y}, nil
		}

	case 0x9000:
		return SkipNotEqual{X: x, Y: y}, nil

	case 0xA000:
		return LoadI{Addr: addr}, nil

	case 0xB000:
		return JumpV0{Addr: addr}, nil

	case 0xC000:
		return Random{X: x, KK: kk}, nil

	case 0xD000:
		return Draw{X: x, Y: y, N: n}, nil

	case 0xE000:
		switch kk {
		case 0x9E:
			return SkipKeyPressed{X: x}, nil
		case 0xA1:
			return SkipKeyNotPressed{X: x}, nil
		}

	case 0xF000:
		switch kk {
		case 0x07:
			return LoadDelayTimer{X: x}, nil
		case 0x0A:
			return WaitKeyPressed{X: x}, nil
		case 0x15:
			return LoadToDelayTimer{X: x}, nil
		case 0x18:
			return LoadToSoundTimer{X: x}, nil
		case 0x1E:
			return AddI{X: x}, nil
		case 0x29:
			return LoadSprite{X: x}, nil
		case 0x33:
			return LoadBCD{X: x}, nil
		case 0x55:
			return SaveRegisters{X: x}, nil
		case 0x65:
			return LoadRegisters{X: x}, nil
		}
	}

	return nil, &UnknownOpcodeError{Opcode: opcode}
}

// Encode returns the canonical instruction word for instr.
// Operands wider than their field are truncated.
func Encode(instr Instruction) uint16 {
	a := func(addr Address) uint16 { return uint16(addr) & 0x0FFF }
	xkk := func(x Register, kk uint8) uint16 { return uint16(x&0xF)<<8 | uint16(kk) }
	xy := func(x, y Register) uint16 { return uint16(x&0xF)<<8 | uint16(y&0xF)<<4 }

	switch i := instr.(type) {
	case ClearScreen:
		return 0x00E0
	case Return:
		return 0x00EE
	case Jump:
		return 0x1000 | a(i.Addr)
	case Call:
		return 0x2000 | a(i.Addr)
	case SkipEqualByte:
		return 0x3000 | xkk(i.X, i.KK)
	case SkipNotEqualByte:
		return 0x4000 | xkk(i.X, i.KK)
	case SkipEqual:
		return 0x5000 | xy(i.X, i.Y)
	case LoadByte:
		return 0x6000 | xkk(i.X, i.KK)
	case AddByte:
		return 0x7000 | xkk(i.X, i.KK)
	case Load:
		return 0x8000 | xy(i.X, i.Y)
	case Or:
		return 0x8001 | xy(i.X, i.Y)
	case And:
		return 0x8002 | xy(i.X, i.Y)
	case Xor:
		return 0x8003 | xy(i.X, i.Y)
	case Add:
		return 0x8004 | xy(i.X, i.Y)
	case Sub:
		return 0x8005 | xy(i.X, i.Y)
	case Shr:
		return 0x8006 | xy(i.X, i.Y)
	case Subn:
		return 0x8007 | xy(i.X, i.Y)
	case Shl:
		return 0x800E | xy(i.X, i.Y)
	case SkipNotEqual:
		return 0x9000 | xy(i.X, i.Y)
	case LoadI:
		return 0xA000 | a(i.Addr)
	case JumpV0:
		return 0xB000 | a(i.Addr)
	case Random:
		return 0xC000 | xkk(i.X, i.KK)
	case Draw:
		return 0xD000 | xy(i.X, i.Y) | uint16(i.N&0xF)
	case SkipKeyPressed:
		return 0xE09E | xkk(i.X, 0)
	case SkipKeyNotPressed:
		return 0xE0A1 | xkk(i.X, 0)
	case LoadDelayTimer:
		return 0xF007 | xkk(i.X, 0)
	case WaitKeyPressed:
		return 0xF00A | xkk(i.X, 0)
	case LoadToDelayTimer:
		return 0xF015 | xkk(i.X, 0)
	case LoadToSoundTimer:
		return 0xF018 | xkk(i.X, 0)
	case AddI:
		return 0xF01E | xkk(i.X, 0)
	case LoadSprite:
		return 0xF029 | xkk(i.X, 0)
	case LoadBCD:
		return 0xF033 | xkk(i.X, 0)
	case SaveRegisters:
		return 0xF055 | xkk(i.X, 0)
	case LoadRegisters:
		return 0xF065 | xkk(i.X, 0)
	}

	panic(fmt.Sprintf("vm: cannot encode %T", instr))
}

func (ClearScreen) instruction()       {}
func (Return) instruction()            {}
func (Jump) instruction()              {}
func (Call) instruction()              {}
func (SkipEqualByte) instruction()     {}
func (SkipNotEqualByte) instruction()  {}
func (SkipEqual) instruction()         {}
func (SkipNotEqual) instruction()      {}
func (LoadByte) instruction()          {}
func (AddByte) instruction()           {}
func (Load) instruction()              {}
func (Or) instruction()                {}
func (And) instruction()               {}
func (Xor) instruction()               {}
func (Add) instruction()               {}
func (Sub) instruction()               {}
func (Shr) instruction()               {}
func (Shl) instruction()               {}
func (Subn) instruction()              {}
func (LoadI) instruction()             {}
func (JumpV0) instruction()            {}
func (Random) instruction()            {}
func (Draw) instruction()              {}
func (SkipKeyPressed) instruction()    {}
func (SkipKeyNotPressed) instruction() {}
func (LoadDelayTimer) instruction()    {}
func (WaitKeyPressed) instruction()    {}
func (LoadToDelayTimer) instruction()  {}
func (LoadToSoundTimer) instruction()  {}
func (AddI) instruction()              {}
func (LoadSprite) instruction()        {}
func (LoadBCD) instruction()           {}
func (SaveRegisters) instruction()     {}
func (LoadRegisters) instruction()     {}

func imm(kk uint8) string {
	return fmt.Sprintf("0x%02X", kk)
}

func (ClearScreen) String() string         { return "CLS" }
func (Return) String() string              { return "RET" }
func (i Jump) String() string              { return "JP " + i.Addr.String() }
func (i Call) String() string              { return "CALL " + i.Addr.String() }
func (i SkipEqualByte) String() string     { return fmt.Sprintf("SE %s, %s", i.X, imm(i.KK)) }
func (i SkipNotEqualByte) String() string  { return fmt.Sprintf("SNE %s, %s", i.X, imm(i.KK)) }
func (i SkipEqual) String() string         { return fmt.Sprintf("SE %s, %s", i.X, i.Y) }
func (i SkipNotEqual) String() string      { return fmt.Sprintf("SNE %s, %s", i.X, i.Y) }
func (i LoadByte) String() string          { return fmt.Sprintf("LD %s, %s", i.X, imm(i.KK)) }
func (i AddByte) String() string           { return fmt.Sprintf("ADD %s, %s", i.X, imm(i.KK)) }
func (i Load) String() string              { return fmt.Sprintf("LD %s, %s", i.X, i.Y) }
func (i Or) String() string                { return fmt.Sprintf("OR %s, %s", i.X, i.Y) }
func (i And) String() string               { return fmt.Sprintf("AND %s, %s", i.X, i.Y) }
func (i Xor) String() string               { return fmt.Sprintf("XOR %s, %s", i.X, i.Y) }
func (i Add) String() string               { return fmt.Sprintf("ADD %s, %s", i.X, i.Y) }
func (i Sub) String() string               { return fmt.Sprintf("SUB %s, %s", i.X, i.Y) }
func (i Shr) String() string               { return fmt.Sprintf("SHR %s, %s", i.X, i.Y) }
func (i Shl) String() string               { return fmt.Sprintf("SHL %s, %s", i.X, i.Y) }
func (i Subn) String() string              { return fmt.Sprintf("SUBN %s, %s", i.X, i.Y) }
func (i LoadI) String() string             { return "LD I, " + i.Addr.String() }
func (i JumpV0) String() string            { return "JP V0, " + i.Addr.String() }
func (i Random) String() string            { return fmt.Sprintf("RND %s, %s", i.X, imm(i.KK)) }
func (i Draw) String() string              { return fmt.Sprintf("DRW %s, %s, %d", i.X, i.Y, i.N) }
func (i SkipKeyPressed) String() string    { return "SKP " + i.X.String() }
func (i SkipKeyNotPressed) String() string { return "SKNP " + i.X.String() }
func (i LoadDelayTimer) String() string    { return fmt.Sprintf("LD %s, DT", i.X) }
func (i WaitKeyPressed) String() string    { return fmt.Sprintf("LD %s, K", i.X) }
func (i LoadToDelayTimer) String() string  { return "LD DT, " + i.X.String() }
func (i LoadToSoundTimer) String() string  { return "LD ST, " + i.X.String() }
func (i AddI) String() string              { return "ADD I, " + i.X.String() }
func (i LoadSprite) String() string        { return "LD F, " + i.X.String() }
func (i LoadBCD) String() string           { return "LD B, " + i.X.String() }
func (i SaveRegisters) String() string     { return "LD [I], " + i.X.String() }
func (i LoadRegisters) String() string     { return fmt.Sprintf("LD %s, [I]", i.X) }
