// Package keystone adapts the Keystone assembler engine to the harness
// Encoder interface, for suites that need instruction forms outside the
// built-in table encoder.
package keystone

import (
	ks "github.com/keystone-engine/keystone/bindings/go/keystone"
	"github.com/pkg/errors"

	"github.com/gsoc2/circuitous/asm"
)

// Encoder assembles Intel-syntax lines with Keystone. Open is called
// lazily on first use.
type Encoder struct {
	Arch ks.Architecture
	Mode ks.Mode
	ks   *ks.Keystone
}

// New returns an x86-64 Keystone encoder.
func New() *Encoder {
	return &Encoder{Arch: ks.ARCH_X86, Mode: ks.MODE_64}
}

func (k *Encoder) Open() (err error) {
	k.ks, err = ks.New(k.Arch, k.Mode)
	return errors.Wrap(err, "ks.New() failed")
}

// Encode assembles each line at address 0 and concatenates the results.
// Lines are assembled one at a time so a failure names the offending line.
func (k *Encoder) Encode(lines []string) (code []byte, err error) {
	if k.ks == nil {
		if err = k.Open(); err != nil {
			return nil, err
		}
	}
	for _, line := range lines {
		out, _, ok := k.ks.Assemble(line, 0)
		if !ok {
			return nil, &asm.EncodingError{
				Line: line,
				Err:  errors.Wrap(k.ks.LastError(), "ks.Assemble() failed"),
			}
		}
		code = append(code, out...)
	}
	return
}
