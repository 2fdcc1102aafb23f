// Package bytecode defines the in-memory compiled program representation
// and its exact on-disk encoding (spec.md §3's Chunk/Program and §6's
// bit-exact file format). Grounded on
// original_source/src/compiler/chunk.rs's Chunk/Program/ChunkConstant and
// its from_bytes/to_bytes pair, and on src/serial.rs's little-endian
// primitive codec, both re-expressed with encoding/binary instead of a
// hand-written byte-cursor helper module, since the standard library
// already covers that ground exactly.
package bytecode

// Op is a single VM instruction opcode (spec.md §4.5's dispatch table).
type Op byte

const (
	OpNop Op = iota
	OpCpy
	OpGetUp
	OpSetUp
	OpGetExt
	OpNeg
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpOr
	OpAnd
	OpEq
	OpNeq
	OpLth
	OpLeq
	OpGth
	OpGeq
	OpFunc
	OpCall
	OpCallMethod
	OpRet
	OpJmp
	OpJit
	OpJif
	OpJin
	OpListNew
	OpListExtend
	OpListGet
	OpListSet
	OpMakeMethod
	OpCloseUp
	OpGetMethod
)

var opNames = map[Op]string{
	OpNop: "Nop", OpCpy: "Cpy", OpGetUp: "GetUp", OpSetUp: "SetUp",
	OpGetExt: "GetExt", OpNeg: "Neg", OpNot: "Not", OpAdd: "Add",
	OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpPow: "Pow",
	OpOr: "Or", OpAnd: "And", OpEq: "Eq", OpNeq: "Neq", OpLth: "Lth",
	OpLeq: "Leq", OpGth: "Gth", OpGeq: "Geq", OpFunc: "Func",
	OpCall: "Call", OpCallMethod: "CallMethod", OpRet: "Ret",
	OpJmp: "Jmp", OpJit: "Jit", OpJif: "Jif", OpJin: "Jin",
	OpListNew: "ListNew", OpListExtend: "ListExtend", OpListGet: "ListGet",
	OpListSet: "ListSet", OpMakeMethod: "MakeMethod", OpCloseUp: "CloseUp",
	OpGetMethod: "GetMethod",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "???"
}

// NumOperandBytes is how many operand bytes follow each opcode, in the
// fixed shapes spec.md §4.5 defines per instruction. Call and CallMethod
// carry their argument count and first argument register as ordinary
// operand bytes, so they have fixed sizes here too; the disassembler
// decodes every instruction through this table.
func (op Op) NumOperandBytes() int {
	switch op {
	case OpNop:
		return 0
	case OpCloseUp:
		return 1
	case OpCpy, OpNeg, OpNot, OpGetExt, OpFunc, OpListNew:
		return 2
	case OpGetUp, OpSetUp:
		return 2
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow, OpOr, OpAnd, OpEq, OpNeq,
		OpLth, OpLeq, OpGth, OpGeq:
		return 3
	case OpJmp:
		return 1
	case OpJit, OpJif, OpJin:
		return 2
	case OpRet:
		return 1
	case OpListExtend:
		return 3
	case OpListGet, OpListSet:
		return 3
	case OpCall:
		return 4
	case OpCallMethod:
		return 6
	case OpMakeMethod:
		return 3
	case OpGetMethod:
		return 3
	default:
		return 0
	}
}

// ConstantTag discriminates the kind of a serialized chunk constant.
type ConstantTag byte

const (
	CTNil ConstantTag = iota
	CTBool
	CTInt
	CTReal
	CTString
)

// Constant is one entry of a chunk's constant pool (spec.md §3's
// {Nil, Bool, Int32, Real, String}).
type Constant struct {
	Tag    ConstantTag
	Bool   bool
	Int    int32
	Real   float64
	String string
}

func NilConstant() Constant           { return Constant{Tag: CTNil} }
func BoolConstant(b bool) Constant    { return Constant{Tag: CTBool, Bool: b} }
func IntConstant(i int32) Constant    { return Constant{Tag: CTInt, Int: i} }
func RealConstant(r float64) Constant { return Constant{Tag: CTReal, Real: r} }
func StringConstant(s string) Constant { return Constant{Tag: CTString, String: s} }

// UpvalueSpec describes how one upvalue of a chunk is sourced from the
// enclosing frame (spec.md §3): a value in [0, MAX_REGISTERS) captures a
// local register of the enclosing chunk; a value in
// [MAX_REGISTERS, 2*MAX_REGISTERS) reuses the enclosing chunk's upvalue at
// index (v - MAX_REGISTERS).
type UpvalueSpec struct {
	Reg  byte
	Name string // only meaningful when the program carries debug info
}

// MaxRegisters is spec.md §4's fixed register-file/constant-pool split
// point.
const MaxRegisters = 128

// LineEntry is one (code offset, source line) pair in a chunk's debug
// line table.
type LineEntry struct {
	Pos  uint16
	Line uint16
}

// Chunk is one compiled unit: top-level code or a function body (spec.md
// §3).
type Chunk struct {
	Name          string
	RegisterCount uint16
	Constants     []Constant
	Upvalues      []UpvalueSpec
	Code          []byte
	Lines         []LineEntry
}

// Program is a whole compiled unit: an ordered list of chunks, chunk 0
// being the entry point, plus whether debug info was embedded.
type Program struct {
	DebugInfo bool
	Chunks    []Chunk
}
