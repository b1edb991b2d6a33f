package wasm

import (
	"encoding/binary"
	"math"
)

// valType is a WASM value type byte (the binary format, §5.3.1 of the
// WASM core spec). Only the two kinds Int/Bool/String and Float map
// onto are used.
type valType byte

const (
	valI32 valType = 0x7F
	valF32 valType = 0x7D
)

// Opcodes used by the lowering pass. Unused instructions (memory ops,
// i64/f64 arithmetic) are intentionally absent: nothing the lowerer
// emits needs them.
const (
	opBlock    = 0x02
	opLoop     = 0x03
	opIf       = 0x04
	opElse     = 0x05
	opEnd      = 0x0B
	opBr       = 0x0C
	opBrIf     = 0x0D
	opReturn   = 0x0F
	opCall     = 0x10
	opLocalGet = 0x20
	opLocalSet = 0x21

	opI32Const = 0x41
	opF32Const = 0x43

	opI32Eqz = 0x45

	opI32Eq   = 0x46
	opI32Ne   = 0x47
	opI32LtS  = 0x48
	opI32GtS  = 0x4A
	opI32LeS  = 0x4C
	opI32GeS  = 0x4E

	opI32Add  = 0x6A
	opI32Sub  = 0x6B
	opI32Mul  = 0x6C
	opI32DivS = 0x6D
	opI32RemS = 0x6F

	opF32Eq  = 0x5B
	opF32Ne  = 0x5C
	opF32Lt  = 0x5D
	opF32Gt  = 0x5E
	opF32Le  = 0x5F
	opF32Ge  = 0x60

	opF32Add = 0x92
	opF32Sub = 0x93
	opF32Mul = 0x94
	opF32Div = 0x95

	blockTypeEmpty = 0x40
	funcTypeTag    = 0x60
	exportKindFunc = 0x00
)

// section IDs, §5.5.2.
const (
	sectionType     = 1
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}
var wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}

// uleb128 encodes v as an unsigned LEB128 varint (§5.2.2).
func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// sleb128 encodes v as a signed LEB128 varint, used for i32.const
// immediates (§5.2.2).
func sleb128(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// f32bits encodes f as WASM's little-endian IEEE-754 single-precision
// immediate format.
func f32bits(f float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
	return buf
}

// byteString returns a WASM "name" or byte-vector: a uleb128 length
// prefix followed by the raw bytes.
func byteString(s string) []byte {
	return append(uleb128(uint64(len(s))), []byte(s)...)
}

// section wraps payload with its section ID and uleb128 length prefix.
func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128(uint64(len(payload)))...)
	return append(out, payload...)
}

// encoder accumulates a module's instruction stream for one function
// body; its bytes become one entry in the code section.
type encoder struct {
	buf []byte
}

func (e *encoder) emit(op byte)          { e.buf = append(e.buf, op) }
func (e *encoder) emitU(op byte, v uint64) {
	e.buf = append(e.buf, op)
	e.buf = append(e.buf, uleb128(v)...)
}
func (e *encoder) i32Const(v int32) { e.buf = append(append(e.buf, opI32Const), sleb128(int64(v))...) }
func (e *encoder) f32Const(v float32) {
	e.buf = append(append(e.buf, opF32Const), f32bits(v)...)
}
