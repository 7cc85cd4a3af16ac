// Package wasmtest builds small WebAssembly plugin modules and artifacts for
// tests. Modules are encoded directly in the binary format so tests do not
// depend on a WebAssembly toolchain.
package wasmtest

// Value types and section ids of the binary format.
const (
	typeI32 = 0x7F
	typeI64 = 0x7E

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	exportFunc   = 0x00
	exportMemory = 0x02
)

// Opcodes used by the generated bodies.
const (
	opEnd      = 0x0B
	opCall     = 0x10
	opDrop     = 0x1A
	opI32Load  = 0x28
	opI32Store = 0x36
	opI32Const = 0x41
	opI64Const = 0x42
)

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(body)))...)
	return append(out, body...)
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, vec(bytesOf(params)...)...)
	return append(out, vec(bytesOf(results)...)...)
}

func bytesOf(types []byte) [][]byte {
	out := make([][]byte, len(types))
	for i, t := range types {
		out[i] = []byte{t}
	}
	return out
}

// code assembles instructions into a function body with no locals.
type code []byte

func (c code) i32(v int32) code { return append(append(c, opI32Const), sleb(int64(v))...) }
func (c code) i64(v int64) code { return append(append(c, opI64Const), sleb(v)...) }
func (c code) call(idx int) code { return append(append(c, opCall), uleb(uint64(idx))...) }
func (c code) drop() code { return append(c, opDrop) }
func (c code) store() code { return append(c, opI32Store, 0x02, 0x00) }
func (c code) load() code { return append(c, opI32Load, 0x02, 0x00) }

func (c code) body() []byte {
	fn := append([]byte{0x00}, c...)
	fn = append(fn, opEnd)
	return append(uleb(uint64(len(fn))), fn...)
}

func dataSegment(offset int32, data []byte) []byte {
	out := []byte{0x00, opI32Const}
	out = append(out, sleb(int64(offset))...)
	out = append(out, opEnd)
	out = append(out, uleb(uint64(len(data)))...)
	return append(out, data...)
}

func packed(ptr, length int) int64 {
	return int64(ptr)<<32 | int64(length)
}
