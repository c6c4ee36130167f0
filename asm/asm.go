package asm

// Encoder turns assembly-syntax lines into machine-code bytes. The result
// is the concatenation of the encodings of each line, in order.
type Encoder interface {
	Encode(lines []string) ([]byte, error)
}
