// Package unicorn adapts the Unicorn CPU emulator as an execution provider,
// the usual subject to verify against the built-in reference interpreter.
package unicorn

import (
	"context"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/gsoc2/circuitous/provider"
	"github.com/gsoc2/circuitous/state"
)

const pageSize = 0x1000

// regIDs maps harness registers to Unicorn register identifiers.
var regIDs = map[state.Reg]int{
	state.RIP: uc.X86_REG_RIP,
	state.RAX: uc.X86_REG_RAX,
	state.RCX: uc.X86_REG_RCX,
	state.RDX: uc.X86_REG_RDX,
	state.RBX: uc.X86_REG_RBX,
	state.RSP: uc.X86_REG_RSP,
	state.RBP: uc.X86_REG_RBP,
	state.RSI: uc.X86_REG_RSI,
	state.RDI: uc.X86_REG_RDI,
	state.R8:  uc.X86_REG_R8,
	state.R9:  uc.X86_REG_R9,
	state.R10: uc.X86_REG_R10,
	state.R11: uc.X86_REG_R11,
	state.R12: uc.X86_REG_R12,
	state.R13: uc.X86_REG_R13,
	state.R14: uc.X86_REG_R14,
	state.R15: uc.X86_REG_R15,
}

// flagBits maps harness flags to their EFLAGS bit positions.
var flagBits = map[state.Flag]uint{
	state.CF: 0,
	state.PF: 2,
	state.AF: 4,
	state.ZF: 6,
	state.SF: 7,
	state.OF: 11,
}

// Provider executes code under Unicorn in 64-bit x86 mode. A fresh emulator
// is created per Execute call, so a Provider is safe for concurrent use.
type Provider struct{}

// New creates a Unicorn-backed provider.
func New() *Provider {
	return &Provider{}
}

// Execute maps a page at the input RIP, writes the code there, seeds the
// registers and flags, and runs the emulator to the end of the sequence.
//
// Unicorn holds a concrete EFLAGS word, so every flag fed to it must be
// defined. Passing an Undef input flag is an execution error: there is no
// honest bit to hand the emulator.
func (p *Provider) Execute(ctx context.Context, code []byte, in state.State) (out state.State, err error) {
	defer func() {
		if err != nil {
			err = &provider.ExecutionError{Reason: "unicorn", Err: err}
		}
	}()

	ip, ok := in.Get(state.RIP)
	if !ok {
		err = errors.New("input state has no instruction pointer")
		return
	}

	mu, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_64)
	if err != nil {
		err = errors.Wrap(err, "NewUnicorn() failed")
		return
	}
	defer mu.Close()

	base := ip &^ (pageSize - 1)
	size := uint64(len(code)) + (ip - base)
	size = (size + pageSize - 1) &^ (pageSize - 1)
	if size == 0 {
		size = pageSize
	}
	if err = mu.MemMap(base, size); err != nil {
		err = errors.Wrap(err, "MemMap() failed")
		return
	}
	if err = mu.MemWrite(ip, code); err != nil {
		err = errors.Wrap(err, "MemWrite() failed")
		return
	}

	for r := range in.SetRegs() {
		v, _ := in.Get(r)
		if err = mu.RegWrite(regIDs[r], v); err != nil {
			err = errors.Wrapf(err, "RegWrite(%v) failed", r)
			return
		}
	}

	eflags := uint64(1 << 1) // reserved bit, always set
	for f := range in.SetFlags() {
		b, _ := in.Flag(f)
		if !b.Defined() {
			err = errors.Errorf("input flag %v is undefined", f)
			return
		}
		eflags |= uint64(b) << flagBits[f]
	}
	if err = mu.RegWrite(uc.X86_REG_EFLAGS, eflags); err != nil {
		err = errors.Wrap(err, "RegWrite(eflags) failed")
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- mu.Start(ip, ip+uint64(len(code)))
	}()
	select {
	case err = <-done:
		if err != nil {
			err = errors.Wrap(err, "emulation failed")
			return
		}
	case <-ctx.Done():
		mu.Stop()
		<-done
		err = ctx.Err()
		return
	}

	out, err = p.readback(mu, in)
	return
}

// readback freezes the emulator registers into a State. Registers the input
// never defined are skipped, since Unicorn zero-fills them and reporting the
// zeros would invent data the case never supplied; flags are read back in
// full, the EFLAGS word is concrete regardless of what was seeded.
func (p *Provider) readback(mu uc.Unicorn, in state.State) (out state.State, err error) {
	rip, err := mu.RegRead(uc.X86_REG_RIP)
	if err != nil {
		err = errors.Wrap(err, "RegRead(rip) failed")
		return
	}
	out = state.New(rip)

	for r := range in.SetRegs() {
		if r == state.RIP {
			continue
		}
		var v uint64
		if v, err = mu.RegRead(regIDs[r]); err != nil {
			err = errors.Wrapf(err, "RegRead(%v) failed", r)
			return
		}
		out = out.With(r, v)
	}

	eflags, err := mu.RegRead(uc.X86_REG_EFLAGS)
	if err != nil {
		err = errors.Wrap(err, "RegRead(eflags) failed")
		return
	}
	for f := range state.Flags() {
		out = out.WithFlag(f, state.BitOf(eflags>>flagBits[f]))
	}
	return
}
