// Package vm executes a compiled bytecode.Program: a register-windowed
// call-frame stack, closure/upvalue management and GC stepping. Grounded
// structurally on vm/vm.go's VM struct (registers array, program, stdout,
// sentinel errcode) and vm/exec.go's big opcode switch, re-targeted from a
// flat 32-register stack machine to a movable register-window, call-frame
// architecture per spec.md §4.
package vm

import (
	"bufio"
	"errors"
	"io"
	"os"

	"nyx/internal/bytecode"
	"nyx/internal/heap"
	"nyx/internal/langerr"
	"nyx/internal/object"
)

// Sentinel errors whose messages the execution errors returned by Run
// carry, mirroring
// vm/vm.go's errProgramFinished/errSegmentationFault style of naming
// failure modes instead of returning ad-hoc strings everywhere.
var (
	ErrStackOverflow  = errors.New("call stack overflow")
	ErrInvalidChunk   = errors.New("invalid chunk reference")
	ErrWrongArgCount  = errors.New("wrong number of arguments")
	ErrNotCallable    = errors.New("value is not callable")
	ErrNotIterable    = errors.New("no such method")
	ErrIndexOutOfRange = errors.New("list index out of range")
)

// maxCallDepth bounds recursive nesting to a stack-overflow error instead
// of an unbounded Go call stack, since VM.run recurses one Go stack frame
// per Nyx call frame.
const maxCallDepth = 1024

// frame is one call-frame's bookkeeping: the chunk being executed, its
// program counter, its register window (a slice the frame allocates for
// itself, sized to the chunk's register count) and its resolved upvalues.
type frame struct {
	chunk    *bytecode.Chunk
	pc       int
	regs     []heap.Value
	closure  *object.Closure
	upvalues []*heap.Ref[*object.Upvalue]

	// openUps tracks, per local register this frame has had closed over,
	// the single shared Upvalue object every closure created so far has
	// captured it through. Looked up whenever a nested function literal
	// captures one of this frame's locals, so two closures built from the
	// same local alias one cell instead of each getting their own (spec.md
	// §4.4's aliasing requirement).
	openUps map[int]*heap.Ref[*object.Upvalue]
}

// VM is one execution of a compiled Program against a GC heap and a fixed
// table of prelude externals.
type VM struct {
	heap      *heap.Heap
	program   *bytecode.Program
	externals []heap.Value

	stdout *bufio.Writer
	stdin  *bufio.Reader

	frames []*frame
}

// New creates a VM ready to Run prog. externals must be in the same order
// internal/compiler.RegisterExternalOrder was given, since GetExt
// addresses this slice positionally.
func New(h *heap.Heap, prog *bytecode.Program, externals []heap.Value) *VM {
	return &VM{
		heap:      h,
		program:   prog,
		externals: externals,
		stdout:    bufio.NewWriter(os.Stdout),
		stdin:     bufio.NewReader(os.Stdin),
	}
}

// SetOutput replaces the writer Run flushes when it returns. The log
// external does not write here: it writes to the writer passed to
// prelude.Build.
func (vm *VM) SetOutput(w io.Writer) { vm.stdout = bufio.NewWriter(w) }

// Run executes chunk 0 to completion (a bare top-level Ret) and returns
// its value.
func (vm *VM) Run() (heap.Value, error) {
	if len(vm.program.Chunks) == 0 {
		return heap.Nil, langerr.Execf("program has no chunks")
	}
	result, err := vm.callChunk(0, nil)
	vm.stdout.Flush()
	return result, err
}

// callChunk pushes a new frame for chunkID, copies args into its register
// window, runs it to a Ret, pops the frame and returns the result.
func (vm *VM) callChunk(chunkID int, args []heap.Value) (heap.Value, error) {
	if chunkID < 0 || chunkID >= len(vm.program.Chunks) {
		return heap.Nil, langerr.Execf("%v: %d", ErrInvalidChunk, chunkID)
	}
	if len(vm.frames) >= maxCallDepth {
		return heap.Nil, langerr.Execf("%v", ErrStackOverflow)
	}
	chunk := &vm.program.Chunks[chunkID]
	f := &frame{
		chunk: chunk,
		regs:  make([]heap.Value, chunk.RegisterCount),
	}
	for i, a := range args {
		if i < len(f.regs) {
			f.regs[i] = a
		}
	}
	vm.frames = append(vm.frames, f)
	result, err := vm.run(f)
	vm.closeRemainingUpvalues(f)
	vm.frames = vm.frames[:len(vm.frames)-1]
	return result, err
}

// callClosure is like callChunk but binds the closure's captured upvalues
// into the new frame so GetUp/SetUp and CloseUp can reach them.
func (vm *VM) callClosure(cl *object.Closure, args []heap.Value) (heap.Value, error) {
	if cl.ChunkID < 0 || cl.ChunkID >= len(vm.program.Chunks) {
		return heap.Nil, langerr.Execf("%v: %d", ErrInvalidChunk, cl.ChunkID)
	}
	if len(vm.frames) >= maxCallDepth {
		return heap.Nil, langerr.Execf("%v", ErrStackOverflow)
	}
	chunk := &vm.program.Chunks[cl.ChunkID]
	f := &frame{
		chunk:    chunk,
		regs:     make([]heap.Value, chunk.RegisterCount),
		closure:  cl,
		upvalues: cl.Upvalues,
	}
	for i, a := range args {
		if i < len(f.regs) {
			f.regs[i] = a
		}
	}
	vm.frames = append(vm.frames, f)
	result, err := vm.run(f)
	vm.closeRemainingUpvalues(f)
	vm.frames = vm.frames[:len(vm.frames)-1]
	return result, err
}

// closeRemainingUpvalues closes every upvalue f still has open over its own
// registers when it returns, since those registers cease to exist the
// moment the frame is popped (spec.md §4.4: a returning frame must close
// every upvalue any closure it produced is still aliasing).
func (vm *VM) closeRemainingUpvalues(f *frame) {
	for _, up := range f.openUps {
		up.Get().Close()
	}
	f.openUps = nil
}
