package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"nyx/internal/langerr"
)

var magic = [4]byte{'h', 's', 'y', 'c'}

const formatVersion uint16 = 1

const flagDebugInfo byte = 1 << 0

// Write serializes prog in the exact layout of SPEC_FULL.md §D / spec.md
// §6: magic, version, flags, then each chunk back to back until the
// writer is done. Grounded on
// original_source/src/compiler/chunk.rs's Program::to_file, structurally;
// re-expressed with encoding/binary instead of src/serial.rs's manual
// read_u8/write_u8 helpers.
func Write(w io.Writer, prog *Program) error {
	if _, err := w.Write(magic[:]); err != nil {
		return langerr.IOf("writing magic: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return langerr.IOf("writing version: %v", err)
	}
	var flags byte
	if prog.DebugInfo {
		flags |= flagDebugInfo
	}
	if _, err := w.Write([]byte{flags}); err != nil {
		return langerr.IOf("writing flags: %v", err)
	}
	for i := range prog.Chunks {
		if err := writeChunk(w, &prog.Chunks[i], prog.DebugInfo); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w io.Writer, c *Chunk, debugInfo bool) error {
	if debugInfo {
		if err := writeSmallString(w, c.Name); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, c.RegisterCount); err != nil {
		return langerr.IOf("writing register_count: %v", err)
	}
	if len(c.Constants) > 0xFFFF {
		return langerr.Compilef(0, "too many constants in chunk %q", c.Name)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(c.Constants))); err != nil {
		return langerr.IOf("writing constant_count: %v", err)
	}
	for _, k := range c.Constants {
		if err := writeConstant(w, k); err != nil {
			return err
		}
	}
	if len(c.Upvalues) > 0xFFFF {
		return langerr.Compilef(0, "too many upvalues in chunk %q", c.Name)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(c.Upvalues))); err != nil {
		return langerr.IOf("writing upvalue_count: %v", err)
	}
	for _, u := range c.Upvalues {
		if _, err := w.Write([]byte{u.Reg}); err != nil {
			return langerr.IOf("writing upvalue reg: %v", err)
		}
		if debugInfo {
			if err := writeSmallString(w, u.Name); err != nil {
				return err
			}
		}
	}
	if debugInfo {
		if len(c.Lines) > 0xFFFF {
			return langerr.Compilef(0, "too many line entries in chunk %q", c.Name)
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(c.Lines))); err != nil {
			return langerr.IOf("writing line_count: %v", err)
		}
		for _, l := range c.Lines {
			if err := binary.Write(w, binary.LittleEndian, l); err != nil {
				return langerr.IOf("writing line entry: %v", err)
			}
		}
	}
	if len(c.Code) > 0xFFFF {
		return langerr.Compilef(0, "chunk %q code too long", c.Name)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(c.Code))); err != nil {
		return langerr.IOf("writing code_len: %v", err)
	}
	if _, err := w.Write(c.Code); err != nil {
		return langerr.IOf("writing code: %v", err)
	}
	return nil
}

func writeConstant(w io.Writer, k Constant) error {
	if _, err := w.Write([]byte{byte(k.Tag)}); err != nil {
		return langerr.IOf("writing constant tag: %v", err)
	}
	switch k.Tag {
	case CTNil:
		return nil
	case CTBool:
		var b byte
		if k.Bool {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case CTInt:
		return binary.Write(w, binary.LittleEndian, k.Int)
	case CTReal:
		return binary.Write(w, binary.LittleEndian, k.Real)
	case CTString:
		if len(k.String) > 0xFFFF {
			return langerr.Compilef(0, "string constant too long")
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(k.String))); err != nil {
			return err
		}
		_, err := w.Write([]byte(k.String))
		return err
	default:
		return langerr.IOf("unknown constant tag %d", k.Tag)
	}
}

func writeSmallString(w io.Writer, s string) error {
	if len(s) > 0xFF {
		return langerr.Compilef(0, "debug name too long")
	}
	if _, err := w.Write([]byte{byte(len(s))}); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// Read deserializes a Program from r, validating the magic and version.
// Chunks are read back to back until EOF, per spec.md §6's "repeated
// until EOF" chunk table.
func Read(r io.Reader) (*Program, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, langerr.IOf("reading magic: %v", err)
	}
	if gotMagic != magic {
		return nil, langerr.IOf("bad magic bytes")
	}
	var ver uint16
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return nil, langerr.IOf("reading version: %v", err)
	}
	if ver != formatVersion {
		return nil, langerr.IOf("unsupported bytecode version %d", ver)
	}
	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return nil, langerr.IOf("reading flags: %v", err)
	}
	debugInfo := flags[0]&flagDebugInfo != 0

	prog := &Program{DebugInfo: debugInfo}
	for {
		chunk, err := readChunk(r, debugInfo)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		prog.Chunks = append(prog.Chunks, *chunk)
	}
	return prog, nil
}

func readChunk(r io.Reader, debugInfo bool) (*Chunk, error) {
	c := &Chunk{}
	if debugInfo {
		name, err := readSmallString(r)
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		c.Name = name
	}
	var regCountBuf [2]byte
	n, err := io.ReadFull(r, regCountBuf[:])
	if n == 0 && errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, langerr.IOf("reading register_count: %v", err)
	}
	c.RegisterCount = binary.LittleEndian.Uint16(regCountBuf[:])

	constCount, err := readU16(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(constCount); i++ {
		k, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		c.Constants = append(c.Constants, k)
	}

	upvalCount, err := readU16(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(upvalCount); i++ {
		var reg [1]byte
		if _, err := io.ReadFull(r, reg[:]); err != nil {
			return nil, langerr.IOf("reading upvalue reg: %v", err)
		}
		u := UpvalueSpec{Reg: reg[0]}
		if debugInfo {
			name, err := readSmallString(r)
			if err != nil {
				return nil, err
			}
			u.Name = name
		}
		c.Upvalues = append(c.Upvalues, u)
	}

	if debugInfo {
		lineCount, err := readU16(r)
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(lineCount); i++ {
			var buf [4]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, langerr.IOf("reading line entry: %v", err)
			}
			c.Lines = append(c.Lines, LineEntry{
				Pos:  binary.LittleEndian.Uint16(buf[0:2]),
				Line: binary.LittleEndian.Uint16(buf[2:4]),
			})
		}
	}

	codeLen, err := readU16(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, langerr.IOf("reading code: %v", err)
	}
	c.Code = code
	return c, nil
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, langerr.IOf("reading u16: %v", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readConstant(r io.Reader) (Constant, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return Constant{}, langerr.IOf("reading constant tag: %v", err)
	}
	tag := ConstantTag(tagBuf[0])
	switch tag {
	case CTNil:
		return NilConstant(), nil
	case CTBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Constant{}, langerr.IOf("reading bool constant: %v", err)
		}
		return BoolConstant(b[0] != 0), nil
	case CTInt:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Constant{}, langerr.IOf("reading int constant: %v", err)
		}
		return IntConstant(int32(binary.LittleEndian.Uint32(buf[:]))), nil
	case CTReal:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Constant{}, langerr.IOf("reading real constant: %v", err)
		}
		bits := binary.LittleEndian.Uint64(buf[:])
		return RealConstant(math.Float64frombits(bits)), nil
	case CTString:
		strLen, err := readU16(r)
		if err != nil {
			return Constant{}, err
		}
		buf := make([]byte, strLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Constant{}, langerr.IOf("reading string constant: %v", err)
		}
		return StringConstant(string(buf)), nil
	default:
		return Constant{}, langerr.IOf("unknown constant tag %d", tag)
	}
}

func readSmallString(r io.Reader) (string, error) {
	var lenBuf [1]byte
	n, err := io.ReadFull(r, lenBuf[:])
	if n == 0 && errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", langerr.IOf("reading small string length: %v", err)
	}
	buf := make([]byte, lenBuf[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", langerr.IOf("reading small string: %v", err)
	}
	return string(buf), nil
}

// WriteToBytes is a convenience wrapper returning the encoded bytes
// directly; the CLI's `compile` command writes through Write instead.
func WriteToBytes(prog *Program) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, prog); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
