package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode        = errors.New("unknown opcode")
	ErrUnknownKey           = errors.New("unknown key")
	ErrStackOverflow        = errors.New("stack overflow")
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrMemoryOutOfRange     = errors.New("memory address out of range")
	ErrProgramTooLarge      = errors.New("program too large")
	ErrUnhandledInstruction = errors.New("unhandled instruction")
)

// UnknownOpcodeError is returned by Decode for words outside the instruction set.
type UnknownOpcodeError struct {
	Opcode uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%04X", e.Opcode)
}

func (e *UnknownOpcodeError) Unwrap() error {
	return ErrUnknownOpcode
}

// UnknownKeyError is returned when a register value is used as a key but
// does not name one of the 16 keypad keys.
type UnknownKeyError struct {
	Value uint8
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key 0x%02X", e.Value)
}

func (e *UnknownKeyError) Unwrap() error {
	return ErrUnknownKey
}
