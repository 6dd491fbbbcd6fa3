package classfile

import "fmt"

// Opcodes consulted by the bridge detector (JVM spec chapter 6). Only the
// invoke family's operands are ever read as constant-pool indices; every
// other opcode is skipped over using fixedOperandLen / the tableswitch /
// lookupswitch / wide special cases below.
const (
	OpLdc            = 0x12
	OpLdcW           = 0x13
	OpLdc2W          = 0x14
	OpTableSwitch    = 0xAA
	OpLookupSwitch   = 0xAB
	OpWide           = 0xC4
	OpInvokeVirtual  = 0xB6
	OpInvokeSpecial  = 0xB7
	OpInvokeStatic   = 0xB8
	OpInvokeInterface = 0xB9
	OpInvokeDynamic  = 0xBA
	OpGetStatic      = 0xB2
	OpPutStatic      = 0xB3
	OpGetField       = 0xB4
	OpPutField       = 0xB5
	OpNew            = 0xBB
	OpANewArray      = 0xBD
	OpCheckCast      = 0xC0
	OpInstanceOf     = 0xC1
	OpMultiANewArray = 0xC5
)

// fixedOperandLen gives the number of operand bytes (excluding the opcode
// byte itself) for every opcode whose length does not depend on pc
// alignment or a "wide" prefix. Opcodes absent from this table and not
// handled as a special case below take 0 operand bytes.
var fixedOperandLen = map[byte]int{
	0x10: 1, // bipush
	0x11: 2, // sipush
	OpLdc:  1,
	OpLdcW:  2,
	OpLdc2W: 2,
	0x15: 1, 0x16: 1, 0x17: 1, 0x18: 1, 0x19: 1, // *load
	0x36: 1, 0x37: 1, 0x38: 1, 0x39: 1, 0x3a: 1, // *store
	0x84: 2, // iinc
	0x99: 2, 0x9a: 2, 0x9b: 2, 0x9c: 2, 0x9d: 2, 0x9e: 2, 0x9f: 2, 0xa0: 2,
	0xa1: 2, 0xa2: 2, 0xa3: 2, 0xa4: 2, 0xa5: 2, 0xa6: 2, // if_*
	0xa7: 2, // goto
	0xa8: 2, // jsr
	0xc6: 2, 0xc7: 2, // ifnull, ifnonnull
	0xc8: 4, 0xc9: 4, // goto_w, jsr_w
	OpGetStatic: 2, OpPutStatic: 2, OpGetField: 2, OpPutField: 2,
	OpInvokeVirtual: 2, OpInvokeSpecial: 2, OpInvokeStatic: 2,
	OpInvokeInterface: 4, OpInvokeDynamic: 4,
	OpNew: 2, OpANewArray: 2, OpCheckCast: 2, OpInstanceOf: 2,
	0xbc: 1,             // newarray
	OpMultiANewArray: 3,
	0xab: 0, 0xaa: 0, // handled specially below
}

// Instruction is a single decoded bytecode instruction. CPIndex is set
// only for opcodes whose operand is a two-byte constant-pool index
// (invoke*, *field, new/checkcast/instanceof/anewarray, ldc_w/ldc2_w);
// for single-byte ldc it is still populated by widening the operand.
type Instruction struct {
	Pc      int
	Opcode  byte
	CPIndex uint16
	HasCP   bool
}

// DecodeInstructions walks a method's raw Code bytes into a flat
// instruction list, tracking just enough operand structure to recover
// constant-pool references — this package never needs to interpret
// stack effects or control flow, only to find invoke* call targets for
// the bridge detector (spec §4.I).
func DecodeInstructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		op := code[pc]
		start := pc
		inst := Instruction{Pc: start, Opcode: op}

		switch op {
		case OpWide:
			pc++
			if pc >= len(code) {
				return nil, fmt.Errorf("classfile: truncated wide instruction at pc %d", start)
			}
			sub := code[pc]
			pc++
			if sub == 0x84 { // iinc
				pc += 4
			} else {
				pc += 2
			}
		case OpTableSwitch:
			pc++
			pc += padTo4(pc)
			if pc+12 > len(code) {
				return nil, fmt.Errorf("classfile: truncated tableswitch at pc %d", start)
			}
			low := be32(code[pc+4:])
			high := be32(code[pc+8:])
			pc += 12 + 4*int(high-low+1)
		case OpLookupSwitch:
			pc++
			pc += padTo4(pc)
			if pc+8 > len(code) {
				return nil, fmt.Errorf("classfile: truncated lookupswitch at pc %d", start)
			}
			n := be32(code[pc+4:])
			pc += 8 + 8*int(n)
		default:
			length, known := fixedOperandLen[op]
			if !known {
				length = 0
			}
			pc++
			switch op {
			case OpLdc:
				if pc < len(code) {
					inst.CPIndex = uint16(code[pc])
					inst.HasCP = true
				}
			case OpLdcW, OpLdc2W, OpGetStatic, OpPutStatic, OpGetField, OpPutField,
				OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface, OpInvokeDynamic,
				OpNew, OpANewArray, OpCheckCast, OpInstanceOf, OpMultiANewArray:
				if pc+2 <= len(code) {
					inst.CPIndex = be16(code[pc:])
					inst.HasCP = true
				}
			}
			pc += length
		}

		if pc > len(code) {
			return nil, fmt.Errorf("classfile: instruction at pc %d overruns code length %d", start, len(code))
		}
		out = append(out, inst)
	}
	return out, nil
}

func padTo4(pc int) int {
	if rem := pc % 4; rem != 0 {
		return 4 - rem
	}
	return 0
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func be32(b []byte) int32 {
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// IsInvoke reports whether opcode is one of the four invoke* forms.
func IsInvoke(opcode byte) bool {
	switch opcode {
	case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
		return true
	default:
		return false
	}
}
