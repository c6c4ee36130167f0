package asm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntelEncode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		Line string
		Code []byte
	}){
		{Line: "rcl rax", Code: []byte{0x48, 0xd1, 0xd0}},
		{Line: "rcl rbx, 1", Code: []byte{0x48, 0xd1, 0xd3}},
		{Line: "rcl rbx, 0x5", Code: []byte{0x48, 0xc1, 0xd3, 0x05}},
		{Line: "rcl rbx, 0", Code: []byte{0x48, 0xc1, 0xd3, 0x00}},
		{Line: "rcl rdx, cl", Code: []byte{0x48, 0xd3, 0xd2}},
		{Line: "rcr rdx, cl", Code: []byte{0x48, 0xd3, 0xda}},
		{Line: "rol eax, cl", Code: []byte{0xd3, 0xc0}},
		{Line: "shl eax, 3", Code: []byte{0xc1, 0xe0, 0x03}},
		{Line: "sal eax, 3", Code: []byte{0xc1, 0xe0, 0x03}},
		{Line: "shr al, cl", Code: []byte{0xd2, 0xe8}},
		{Line: "sar r11, 1", Code: []byte{0x49, 0xd1, 0xfb}},

		{Line: "add rax, rbx", Code: []byte{0x48, 0x01, 0xd8}},
		{Line: "add ax, bx", Code: []byte{0x66, 0x01, 0xd8}},
		{Line: "adc rdx, r9", Code: []byte{0x4c, 0x11, 0xca}},
		{Line: "xor al, al", Code: []byte{0x30, 0xc0}},
		{Line: "sub rcx, 0x10", Code: []byte{0x48, 0x83, 0xe9, 0x10}},
		{Line: "cmp rcx, 0x10", Code: []byte{0x48, 0x83, 0xf9, 0x10}},
		{Line: "and edx, 0x12345", Code: []byte{0x81, 0xe2, 0x45, 0x23, 0x01, 0x00}},
		{Line: "or bl, 0x80", Code: []byte{0x80, 0xcb, 0x80}},

		{Line: "inc r8", Code: []byte{0x49, 0xff, 0xc0}},
		{Line: "dec cl", Code: []byte{0xfe, 0xc9}},
		{Line: "not dl", Code: []byte{0xf6, 0xd2}},
		{Line: "neg rsi", Code: []byte{0x48, 0xf7, 0xde}},
		{Line: "not spl", Code: []byte{0x40, 0xf6, 0xd4}},

		{Line: "test rax, rbx", Code: []byte{0x48, 0x85, 0xd8}},
		{Line: "test al, 0x0f", Code: []byte{0xf6, 0xc0, 0x0f}},

		{Line: "mov rbx, rax", Code: []byte{0x48, 0x89, 0xc3}},
		{Line: "mov al, 0x7f", Code: []byte{0xb0, 0x7f}},
		{Line: "mov ecx, 0x100", Code: []byte{0xb9, 0x00, 0x01, 0x00, 0x00}},
		{Line: "mov rax, 0x123456789abcdef0",
			Code: []byte{0x48, 0xb8, 0xf0, 0xde, 0xbc, 0x9a, 0x78, 0x56, 0x34, 0x12}},

		{Line: "ADD RAX, RBX ; comment", Code: []byte{0x48, 0x01, 0xd8}},
	}

	enc := &Intel{}
	for _, testcase := range table {
		code, err := enc.Encode([]string{testcase.Line})
		assert.NoError(err, testcase.Line)
		assert.Equal(testcase.Code, code, testcase.Line)
	}
}

func TestIntelEncodeConcat(t *testing.T) {
	assert := assert.New(t)

	enc := &Intel{}
	code, err := enc.Encode([]string{"xor al, al", "inc r8"})
	assert.NoError(err)
	assert.Equal([]byte{0x30, 0xc0, 0x49, 0xff, 0xc0}, code)
}

func TestIntelEncodeErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		Line string
		Err  error
	}){
		{Line: "bogus rax", Err: ErrMnemonic},
		{Line: "", Err: ErrMnemonic},
		{Line: "inc", Err: ErrOperandCount},
		{Line: "add rax", Err: ErrOperandCount},
		{Line: "add rax, ebx", Err: ErrWidth},
		{Line: "add rax, 0x100000000", Err: ErrImmediate},
		{Line: "mov al, 0x100", Err: ErrImmediate},
		{Line: "add rax, xmm0", Err: ErrOperand},
		{Line: "rcl rax, bl", Err: ErrOperand},
	}

	enc := &Intel{}
	for _, testcase := range table {
		_, err := enc.Encode([]string{testcase.Line})
		assert.Error(err, testcase.Line)
		assert.ErrorIs(err, testcase.Err, testcase.Line)

		// Encoding failures name the offending line.
		var encErr *EncodingError
		assert.True(errors.As(err, &encErr), testcase.Line)
		assert.Equal(testcase.Line, encErr.Line)
	}
}

func TestIntelEncodeStopsAtBadLine(t *testing.T) {
	assert := assert.New(t)

	enc := &Intel{}
	_, err := enc.Encode([]string{"inc rax", "frobnicate rbx"})
	assert.Error(err)

	var encErr *EncodingError
	assert.True(errors.As(err, &encErr))
	assert.Equal("frobnicate rbx", encErr.Line)
}
