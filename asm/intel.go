package asm

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gsoc2/circuitous/state"
)

// regOp is a register operand resolved from its assembly name.
type regOp struct {
	reg   state.Reg
	width int  // operand width in bits
	enc   byte // hardware encoding number (0-15)
	rex8  bool // 8-bit register addressable only with a REX prefix
}

// Register names in hardware encoding order, per width.
var (
	names64 = []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	names32 = []string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
	names16 = []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
	names8 = []string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
		"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
)

var regTable = map[string]regOp{}

func init() {
	widths := map[int][]string{64: names64, 32: names32, 16: names16, 8: names8}
	for width, names := range widths {
		for n, name := range names {
			regTable[name] = regOp{
				reg:   state.Reg(int(state.RAX) + n),
				width: width,
				enc:   byte(n),
				rex8:  width == 8 && n >= 4 && n < 8,
			}
		}
	}
}

// Intel is a table-driven encoder for the Intel-syntax subset the
// reference interpreter executes. Register operands only; one instruction
// per line.
type Intel struct {
	Verbose bool // If set, verbosely logs each encoded line.
}

// Encode encodes each line and returns the concatenated bytes.
func (enc *Intel) Encode(lines []string) (code []byte, err error) {
	for _, line := range lines {
		var one []byte
		one, err = enc.line(line)
		if err != nil {
			err = &EncodingError{Line: line, Err: err}
			return
		}
		if enc.Verbose {
			log.Printf("asm: %-24v % x", line, one)
		}
		code = append(code, one...)
	}
	return
}

// operand is a parsed register or immediate operand.
type operand struct {
	isReg bool
	reg   regOp
	imm   int64
}

func parseOperand(word string) (op operand, err error) {
	reg, ok := regTable[word]
	if ok {
		op = operand{isReg: true, reg: reg}
		return
	}
	imm, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		// Large unsigned 64-bit literals.
		var uimm uint64
		uimm, err = strconv.ParseUint(word, 0, 64)
		if err != nil {
			err = errors.Join(ErrOperand, fmt.Errorf("%q", word))
			return
		}
		imm = int64(uimm)
	}
	op = operand{imm: imm}
	return
}

// prefixes emits the operand-size and REX prefixes for one instruction.
func prefixes(w int, rexR, rexB, force bool) (out []byte) {
	if w == 16 {
		out = append(out, 0x66)
	}
	rex := byte(0x40)
	if w == 64 {
		rex |= 0x08
	}
	if rexR {
		rex |= 0x04
	}
	if rexB {
		rex |= 0x01
	}
	if rex != 0x40 || force {
		out = append(out, rex)
	}
	return
}

// immLE renders an immediate as n little-endian bytes, range checked.
func immLE(v int64, n int) (out []byte, err error) {
	bits := uint(n * 8)
	if n < 8 {
		lo := -(int64(1) << (bits - 1))
		hi := (int64(1) << bits) - 1
		if v < lo || v > hi {
			err = ErrImmediate
			return
		}
	}
	for i := 0; i < n; i++ {
		out = append(out, byte(uint64(v)>>(8*i)))
	}
	return
}

// emitRM encodes opcode + modrm for a single register operand in r/m, with
// the modrm reg field used as an opcode extension.
func emitRM(opc8, opc byte, ext byte, rm regOp, imm []byte) []byte {
	out := prefixes(rm.width, false, rm.enc >= 8, rm.rex8)
	if rm.width == 8 {
		out = append(out, opc8)
	} else {
		out = append(out, opc)
	}
	out = append(out, 0xc0|(ext<<3)|(rm.enc&7))
	return append(out, imm...)
}

// emitRR encodes opcode + modrm for a register-to-register form, source in
// the modrm reg field, destination in r/m.
func emitRR(opc8, opc byte, src, dst regOp) []byte {
	out := prefixes(dst.width, src.enc >= 8, dst.enc >= 8, src.rex8 || dst.rex8)
	if dst.width == 8 {
		out = append(out, opc8)
	} else {
		out = append(out, opc)
	}
	out = append(out, 0xc0|((src.enc&7)<<3)|(dst.enc&7))
	return out
}

// Shift and rotate group: modrm opcode extensions.
var shiftExt = map[string]byte{
	"rol": 0, "ror": 1, "rcl": 2, "rcr": 3,
	"shl": 4, "sal": 4, "shr": 5, "sar": 7,
}

// Classic ALU group order: opcode = index*8 (+1 for the non-byte form),
// and the same index is the immediate-form modrm extension.
var aluIdx = map[string]byte{
	"add": 0, "or": 1, "adc": 2, "sbb": 3,
	"and": 4, "sub": 5, "xor": 6, "cmp": 7,
}

// Single-operand group: opcode pair and modrm extension.
var unaryOps = map[string]struct {
	opc8, opc, ext byte
}{
	"inc": {0xfe, 0xff, 0},
	"dec": {0xfe, 0xff, 1},
	"not": {0xf6, 0xf7, 2},
	"neg": {0xf6, 0xf7, 3},
}

func (enc *Intel) line(text string) (out []byte, err error) {
	line := strings.TrimSpace(strings.ToLower(text))
	if n := strings.IndexByte(line, ';'); n >= 0 {
		line = strings.TrimSpace(line[:n])
	}
	if len(line) == 0 {
		err = ErrMnemonic
		return
	}

	mnem := line
	var rest string
	if n := strings.IndexByte(line, ' '); n >= 0 {
		mnem, rest = line[:n], strings.TrimSpace(line[n+1:])
	}

	var ops []operand
	if len(rest) != 0 {
		for _, word := range strings.Split(rest, ",") {
			var op operand
			op, err = parseOperand(strings.TrimSpace(word))
			if err != nil {
				return
			}
			ops = append(ops, op)
		}
	}

	if ext, ok := shiftExt[mnem]; ok {
		return enc.shift(ext, ops)
	}
	if idx, ok := aluIdx[mnem]; ok {
		return enc.alu(idx, ops)
	}
	if op, ok := unaryOps[mnem]; ok {
		if len(ops) != 1 || !ops[0].isReg {
			err = ErrOperandCount
			return
		}
		out = emitRM(op.opc8, op.opc, op.ext, ops[0].reg, nil)
		return
	}
	switch mnem {
	case "mov":
		return enc.mov(ops)
	case "test":
		return enc.test(ops)
	}

	err = ErrMnemonic
	return
}

// shift encodes the rotate/shift group: by 1, by imm8, or by cl.
func (enc *Intel) shift(ext byte, ops []operand) (out []byte, err error) {
	if len(ops) < 1 || len(ops) > 2 || !ops[0].isReg {
		err = ErrOperandCount
		return
	}
	dst := ops[0].reg

	// No count operand is the rotate/shift-by-one form.
	if len(ops) == 1 {
		out = emitRM(0xd0, 0xd1, ext, dst, nil)
		return
	}

	count := ops[1]
	switch {
	case count.isReg && count.reg.reg == state.RCX && count.reg.width == 8:
		out = emitRM(0xd2, 0xd3, ext, dst, nil)
	case count.isReg:
		err = ErrOperand
	case count.imm == 1:
		out = emitRM(0xd0, 0xd1, ext, dst, nil)
	case count.imm >= 0 && count.imm <= 0xff:
		out = emitRM(0xc0, 0xc1, ext, dst, []byte{byte(count.imm)})
	default:
		err = ErrImmediate
	}
	return
}

// alu encodes the classic two-operand ALU group.
func (enc *Intel) alu(idx byte, ops []operand) (out []byte, err error) {
	if len(ops) != 2 || !ops[0].isReg {
		err = ErrOperandCount
		return
	}
	dst := ops[0].reg

	if ops[1].isReg {
		src := ops[1].reg
		if src.width != dst.width {
			err = ErrWidth
			return
		}
		out = emitRR(idx*8, idx*8+1, src, dst)
		return
	}

	imm := ops[1].imm
	switch {
	case dst.width == 8:
		var bs []byte
		bs, err = immLE(imm, 1)
		if err != nil {
			return
		}
		out = emitRM(0x80, 0x80, idx, dst, bs)
	case imm >= -0x80 && imm <= 0x7f:
		// Sign-extended imm8 form.
		out = emitRM(0, 0x83, idx, dst, []byte{byte(imm)})
	default:
		size := 4
		if dst.width == 16 {
			size = 2
		}
		if dst.width == 64 && (imm < -0x80000000 || imm > 0x7fffffff) {
			// 64-bit ALU immediates are sign-extended from 32 bits.
			err = ErrImmediate
			return
		}
		var bs []byte
		bs, err = immLE(imm, size)
		if err != nil {
			return
		}
		out = emitRM(0, 0x81, idx, dst, bs)
	}
	return
}

// test encodes TEST reg,reg and TEST reg,imm.
func (enc *Intel) test(ops []operand) (out []byte, err error) {
	if len(ops) != 2 || !ops[0].isReg {
		err = ErrOperandCount
		return
	}
	dst := ops[0].reg

	if ops[1].isReg {
		src := ops[1].reg
		if src.width != dst.width {
			err = ErrWidth
			return
		}
		out = emitRR(0x84, 0x85, src, dst)
		return
	}

	size := 4
	switch dst.width {
	case 8:
		size = 1
	case 16:
		size = 2
	}
	if dst.width == 64 && (ops[1].imm < -0x80000000 || ops[1].imm > 0x7fffffff) {
		err = ErrImmediate
		return
	}
	var bs []byte
	bs, err = immLE(ops[1].imm, size)
	if err != nil {
		return
	}
	out = emitRM(0xf6, 0xf7, 0, dst, bs)
	return
}

// mov encodes MOV reg,reg and MOV reg,imm.
func (enc *Intel) mov(ops []operand) (out []byte, err error) {
	if len(ops) != 2 || !ops[0].isReg {
		err = ErrOperandCount
		return
	}
	dst := ops[0].reg

	if ops[1].isReg {
		src := ops[1].reg
		if src.width != dst.width {
			err = ErrWidth
			return
		}
		out = emitRR(0x88, 0x89, src, dst)
		return
	}

	// MOV reg,imm takes a full-width immediate with the register number
	// packed into the opcode.
	imm := ops[1].imm
	out = prefixes(dst.width, false, dst.enc >= 8, dst.rex8)
	var bs []byte
	switch dst.width {
	case 8:
		bs, err = immLE(imm, 1)
		out = append(out, 0xb0+(dst.enc&7))
	case 16:
		bs, err = immLE(imm, 2)
		out = append(out, 0xb8+(dst.enc&7))
	case 32:
		bs, err = immLE(imm, 4)
		out = append(out, 0xb8+(dst.enc&7))
	case 64:
		bs, err = immLE(imm, 8)
		out = append(out, 0xb8+(dst.enc&7))
	}
	if err != nil {
		return
	}
	out = append(out, bs...)
	return
}
