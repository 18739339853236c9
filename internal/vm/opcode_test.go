package vm

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allInstructions has one value of every Instruction type.
var allInstructions = []Instruction{
	ClearScreen{},
	Return{},
	Jump{Addr: 0x300},
	Call{Addr: 0x300},
	SkipEqualByte{X: 0x1, KK: 0x2A},
	SkipNotEqualByte{X: 0x1, KK: 0x2A},
	SkipEqual{X: 0x1, Y: 0x2},
	SkipNotEqual{X: 0x1, Y: 0x2},
	LoadByte{X: 0x1, KK: 0x2A},
	AddByte{X: 0x1, KK: 0x2A},
	Load{X: 0x1, Y: 0x2},
	Or{X: 0x1, Y: 0x2},
	And{X: 0x1, Y: 0x2},
	Xor{X: 0x1, Y: 0x2},
	Add{X: 0x1, Y: 0x2},
	Sub{X: 0x1, Y: 0x2},
	Shr{X: 0x1, Y: 0x2},
	Shl{X: 0x1, Y: 0x2},
	Subn{X: 0x1, Y: 0x2},
	LoadI{Addr: 0x300},
	JumpV0{Addr: 0x300},
	Random{X: 0x1, KK: 0x2A},
	Draw{X: 0x1, Y: 0x2, N: 5},
	SkipKeyPressed{X: 0x1},
	SkipKeyNotPressed{X: 0x1},
	LoadDelayTimer{X: 0x1},
	WaitKeyPressed{X: 0x1},
	LoadToDelayTimer{X: 0x1},
	LoadToSoundTimer{X: 0x1},
	AddI{X: 0x1},
	LoadSprite{X: 0x1},
	LoadBCD{X: 0x1},
	SaveRegisters{X: 0x1},
	LoadRegisters{X: 0x1},
}

func TestDecode(t *testing.T) {
	tests := []struct {
		opcode uint16
		want   Instruction
		str    string
	}{
		{0x00E0, ClearScreen{}, "CLS"},
		{0x00EE, Return{}, "RET"},
		{0x0123, Jump{Addr: 0x123}, "JP 0x123"},
		{0x1ABC, Jump{Addr: 0xABC}, "JP 0xABC"},
		{0x2ABC, Call{Addr: 0xABC}, "CALL 0xABC"},
		{0x3A2B, SkipEqualByte{X: 0xA, KK: 0x2B}, "SE VA, 0x2B"},
		{0x4A2B, SkipNotEqualByte{X: 0xA, KK: 0x2B}, "SNE VA, 0x2B"},
		{0x5AB0, SkipEqual{X: 0xA, Y: 0xB}, "SE VA, VB"},
		{0x6A2B, LoadByte{X: 0xA, KK: 0x2B}, "LD VA, 0x2B"},
		{0x7A2B, AddByte{X: 0xA, KK: 0x2B}, "ADD VA, 0x2B"},
		{0x8AB0, Load{X: 0xA, Y: 0xB}, "LD VA, VB"},
		{0x8AB1, Or{X: 0xA, Y: 0xB}, "OR VA, VB"},
		{0x8AB2, And{X: 0xA, Y: 0xB}, "AND VA, VB"},
		{0x8AB3, Xor{X: 0xA, Y: 0xB}, "XOR VA, VB"},
		{0x8AB4, Add{X: 0xA, Y: 0xB}, "ADD VA, VB"},
		{0x8AB5, Sub{X: 0xA, Y: 0xB}, "SUB VA, VB"},
		{0x8AB6, Shr{X: 0xA, Y: 0xB}, "SHR VA, VB"},
		{0x8AB7, Subn{X: 0xA, Y: 0xB}, "SUBN VA, VB"},
		{0x8ABE, Shl{X: 0xA, Y: 0xB}, "SHL VA, VB"},
		{0x9AB0, SkipNotEqual{X: 0xA, Y: 0xB}, "SNE VA, VB"},
		{0xA123, LoadI{Addr: 0x123}, "LD I, 0x123"},
		{0xB123, JumpV0{Addr: 0x123}, "JP V0, 0x123"},
		{0xC30F, Random{X: 0x3, KK: 0x0F}, "RND V3, 0x0F"},
		{0xD125, Draw{X: 0x1, Y: 0x2, N: 5}, "DRW V1, V2, 5"},
		{0xE59E, SkipKeyPressed{X: 0x5}, "SKP V5"},
		{0xE5A1, SkipKeyNotPressed{X: 0x5}, "SKNP V5"},
		{0xF507, LoadDelayTimer{X: 0x5}, "LD V5, DT"},
		{0xF50A, WaitKeyPressed{X: 0x5}, "LD V5, K"},
		{0xF515, LoadToDelayTimer{X: 0x5}, "LD DT, V5"},
		{0xF518, LoadToSoundTimer{X: 0x5}, "LD ST, V5"},
		{0xF51E, AddI{X: 0x5}, "ADD I, V5"},
		{0xF529, LoadSprite{X: 0x5}, "LD F, V5"},
		{0xF533, LoadBCD{X: 0x5}, "LD B, V5"},
		{0xF555, SaveRegisters{X: 0x5}, "LD [I], V5"},
		{0xF565, LoadRegisters{X: 0x5}, "LD V5, [I]"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			instr, err := Decode(tt.opcode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, instr)
			assert.Equal(t, tt.str, instr.String())
		})
	}
}

func TestDecodeUnknown(t *testing.T) {
	for _, opcode := range []uint16{0x8008, 0x800F, 0xE000, 0xE19F, 0xF000, 0xFFFF} {
		instr, err := Decode(opcode)
		assert.Nil(t, instr)
		require.ErrorIs(t, err, ErrUnknownOpcode)

		var opErr *UnknownOpcodeError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, opcode, opErr.Opcode)
	}
}

func TestDecodeIsTotal(t *testing.T) {
	unknown := 0
	for w := 0; w <= 0xFFFF; w++ {
		opcode := uint16(w)

		instr, err := Decode(opcode)
		if err != nil {
			var opErr *UnknownOpcodeError
			require.True(t, errors.As(err, &opErr), "0x%04X", opcode)
			require.Equal(t, opcode, opErr.Opcode)
			unknown++
			continue
		}

		require.NotNil(t, instr, "0x%04X", opcode)
		again, err := Decode(Encode(instr))
		require.NoError(t, err)
		require.Equal(t, instr, again, "0x%04X", opcode)
	}

	// 8XY8-8XYD, 8XYF; EX?? except 9E and A1; FX?? except the nine known.
	assert.Equal(t, 7*256+254*16+247*16, unknown)
}

func TestEncode(t *testing.T) {
	for _, instr := range allInstructions {
		decoded, err := Decode(Encode(instr))
		require.NoError(t, err)
		assert.Equal(t, instr, decoded)
	}

	assert.Equal(t, uint16(0x1300), Encode(Jump{Addr: 0x300}))
	assert.Equal(t, uint16(0xDAB3), Encode(Draw{X: 0xA, Y: 0xB, N: 3}))
}

// TestStringKeepsOperands checks that the register, address, immediate and
// row-count fields of every decodable word can be read back from its mnemonic.
func TestStringKeepsOperands(t *testing.T) {
	tokens := regexp.MustCompile(`V([0-9A-F])\b|0x([0-9A-F]+)|, (\d+)$`)

	for w := 0; w <= 0xFFFF; w++ {
		instr, err := Decode(uint16(w))
		if err != nil {
			continue
		}

		var (
			regs []uint64
			hex  []uint64
			dec  []uint64
		)
		for _, m := range tokens.FindAllStringSubmatch(instr.String(), -1) {
			switch {
			case m[1] != "":
				n, _ := strconv.ParseUint(m[1], 16, 8)
				regs = append(regs, n)
			case m[2] != "":
				n, _ := strconv.ParseUint(m[2], 16, 16)
				hex = append(hex, n)
			case m[3] != "":
				n, _ := strconv.ParseUint(m[3], 10, 8)
				dec = append(dec, n)
			}
		}

		var wantRegs, wantHex, wantDec []uint64
		if _, ok := instr.(JumpV0); ok {
			wantRegs = append(wantRegs, 0)
		}

		v := reflect.ValueOf(instr)
		for _, name := range []string{"X", "Y"} {
			if f := v.FieldByName(name); f.IsValid() {
				wantRegs = append(wantRegs, f.Uint())
			}
		}
		for _, name := range []string{"Addr", "KK"} {
			if f := v.FieldByName(name); f.IsValid() {
				wantHex = append(wantHex, f.Uint())
			}
		}
		if f := v.FieldByName("N"); f.IsValid() {
			wantDec = append(wantDec, f.Uint())
		}

		require.Equal(t, wantRegs, regs, "%q", instr)
		require.Equal(t, wantHex, hex, "%q", instr)
		require.Equal(t, wantDec, dec, "%q", instr)
	}
}
