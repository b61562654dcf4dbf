package dsstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Kind identifies the wire type of a record value.
type Kind uint8

const (
	KindBool Kind = iota // 1 byte, 0/1
	KindLong             // 4 bytes, big-endian signed
	KindShor             // 4 bytes on the wire, low 16 bits valid
	KindBlob             // u32 length prefix + raw bytes
	KindUstr             // u32 character count + UTF-16BE code units
	KindType             // 4 ASCII bytes, a 4-character tag
	KindComp             // 8 bytes, big-endian
	KindDutc             // 8 bytes, big-endian (HFS+ timestamp ticks)
)

var kindTags = map[Kind]string{
	KindBool: "bool",
	KindLong: "long",
	KindShor: "shor",
	KindBlob: "blob",
	KindUstr: "ustr",
	KindType: "type",
	KindComp: "comp",
	KindDutc: "dutc",
}

// Tag returns the 4-byte type tag stored on the wire for this kind.
func (k Kind) Tag() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return "????"
}

// KindForTag maps a wire type tag back to its Kind.
func KindForTag(tag string) (Kind, bool) {
	for k, t := range kindTags {
		if t == tag {
			return k, true
		}
	}
	return 0, false
}

// Value is a tagged union over the eight wire types. Exactly the fields
// matching Kind are meaningful; the rest stay zero.
type Value struct {
	Kind  Kind
	Bool  bool   // bool
	Int   int32  // long, shor
	Blob  []byte // blob
	Str   string // ustr
	Type  string // type (4-character tag)
	Int64 int64  // comp, dutc
}

func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func LongValue(v int32) Value    { return Value{Kind: KindLong, Int: v} }
func ShorValue(v int32) Value    { return Value{Kind: KindShor, Int: v & 0xffff} }
func BlobValue(b []byte) Value   { return Value{Kind: KindBlob, Blob: b} }
func UstrValue(s string) Value   { return Value{Kind: KindUstr, Str: s} }
func TypeValue(tag string) Value { return Value{Kind: KindType, Type: tag} }
func CompValue(v int64) Value    { return Value{Kind: KindComp, Int64: v} }
func DutcValue(v int64) Value    { return Value{Kind: KindDutc, Int64: v} }

// ByteLength returns the encoded size of the value, including any length
// prefix, so callers can pre-size writes.
func (v Value) ByteLength() int {
	switch v.Kind {
	case KindBool:
		return 1
	case KindLong, KindShor, KindType:
		return 4
	case KindComp, KindDutc:
		return 8
	case KindBlob:
		return 4 + len(v.Blob)
	case KindUstr:
		return 4 + 2*utf16Length(v.Str)
	}
	return 0
}

// String renders a short human-readable summary, used by the dump command
// and the inspector.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindLong, KindShor:
		return fmt.Sprintf("%d", v.Int)
	case KindBlob:
		return fmt.Sprintf("<%d bytes>", len(v.Blob))
	case KindUstr:
		return fmt.Sprintf("%q", v.Str)
	case KindType:
		return fmt.Sprintf("'%s'", v.Type)
	case KindComp, KindDutc:
		return fmt.Sprintf("%d", v.Int64)
	}
	return "?"
}

// Equal reports field-wise equality of two values.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindLong, KindShor:
		return v.Int == other.Int
	case KindBlob:
		return bytes.Equal(v.Blob, other.Blob)
	case KindUstr:
		return v.Str == other.Str
	case KindType:
		return v.Type == other.Type
	case KindComp, KindDutc:
		return v.Int64 == other.Int64
	}
	return false
}

// encodeTo appends the value's wire bytes to b.
func (v Value) encodeTo(b *bytes.Buffer) error {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return b.WriteByte(1)
		}
		return b.WriteByte(0)
	case KindLong:
		return binary.Write(b, binary.BigEndian, v.Int)
	case KindShor:
		// High 16 bits are written as zero regardless of the stored value.
		return binary.Write(b, binary.BigEndian, v.Int&0xffff)
	case KindBlob:
		if err := binary.Write(b, binary.BigEndian, uint32(len(v.Blob))); err != nil {
			return err
		}
		_, err := b.Write(v.Blob)
		return err
	case KindUstr:
		enc, err := utf16Encode(v.Str)
		if err != nil {
			return err
		}
		if err := binary.Write(b, binary.BigEndian, uint32(len(enc)/2)); err != nil {
			return err
		}
		_, err = b.Write(enc)
		return err
	case KindType:
		tag := make([]byte, 4)
		copy(tag, v.Type)
		_, err := b.Write(tag)
		return err
	case KindComp, KindDutc:
		return binary.Write(b, binary.BigEndian, v.Int64)
	}
	return fmt.Errorf("unknown value kind %d", v.Kind)
}

// decodeValue reads one value of the given kind from b. A length prefix
// that exceeds the remaining buffer yields ErrMalformedRecord; trailing
// bytes beyond the declared length belong to the next record and are left
// in the buffer.
func decodeValue(kind Kind, b *bytes.Buffer) (Value, error) {
	switch kind {
	case KindBool:
		c, err := b.ReadByte()
		if err != nil {
			return Value{}, fmt.Errorf("%w: truncated bool", ErrMalformedRecord)
		}
		return BoolValue(c != 0), nil
	case KindLong, KindShor:
		var n int32
		if err := binary.Read(b, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("%w: truncated %s", ErrMalformedRecord, kind.Tag())
		}
		if kind == KindShor {
			// High bytes are ignored, not validated.
			return ShorValue(n), nil
		}
		return LongValue(n), nil
	case KindBlob:
		var n uint32
		if err := binary.Read(b, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("%w: truncated blob length", ErrMalformedRecord)
		}
		if int(n) > b.Len() {
			return Value{}, fmt.Errorf("%w: blob length %d exceeds remaining %d", ErrMalformedRecord, n, b.Len())
		}
		blob := make([]byte, n)
		if _, err := b.Read(blob); err != nil {
			return Value{}, fmt.Errorf("%w: truncated blob", ErrMalformedRecord)
		}
		return BlobValue(blob), nil
	case KindUstr:
		var n uint32
		if err := binary.Read(b, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("%w: truncated ustr length", ErrMalformedRecord)
		}
		if int(2*n) > b.Len() {
			return Value{}, fmt.Errorf("%w: ustr length %d exceeds remaining %d", ErrMalformedRecord, 2*n, b.Len())
		}
		raw := make([]byte, 2*n)
		if _, err := b.Read(raw); err != nil {
			return Value{}, fmt.Errorf("%w: truncated ustr", ErrMalformedRecord)
		}
		s, err := utf16Decode(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad ustr encoding", ErrMalformedRecord)
		}
		return UstrValue(s), nil
	case KindType:
		tag := make([]byte, 4)
		if _, err := io.ReadFull(b, tag); err != nil {
			return Value{}, fmt.Errorf("%w: truncated type", ErrMalformedRecord)
		}
		return TypeValue(string(tag)), nil
	case KindComp, KindDutc:
		var n int64
		if err := binary.Read(b, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("%w: truncated %s", ErrMalformedRecord, kind.Tag())
		}
		if kind == KindComp {
			return CompValue(n), nil
		}
		return DutcValue(n), nil
	}
	return Value{}, fmt.Errorf("unknown value kind %d", kind)
}

// Record is one (filename, code, value) tuple in the store. The filename
// "." carries directory-level settings; Code is a 4-character ASCII field
// tag such as "Iloc" or "vstl".
type Record struct {
	Filename string
	Code     string
	Value    Value
}

// ByteLength returns the full encoded size of the record.
func (r Record) ByteLength() int {
	return 4 + 2*utf16Length(r.Filename) + 4 + 4 + r.Value.ByteLength()
}

// Less orders records the way the container requires: filenames compare
// case-insensitively with an exact-bytes tie-break, codes compare byte-wise.
func (r Record) Less(other Record) bool {
	a, b := strings.ToLower(r.Filename), strings.ToLower(other.Filename)
	if a != b {
		return a < b
	}
	if r.Filename != other.Filename {
		return r.Filename < other.Filename
	}
	return r.Code < other.Code
}

// encodeTo appends the record's wire bytes to b:
// [name length][UTF-16BE name][code][type tag][value].
func (r Record) encodeTo(b *bytes.Buffer) error {
	name, err := utf16Encode(r.Filename)
	if err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint32(len(name)/2)); err != nil {
		return err
	}
	if _, err := b.Write(name); err != nil {
		return err
	}
	code := make([]byte, 4)
	copy(code, r.Code)
	if _, err := b.Write(code); err != nil {
		return err
	}
	if _, err := b.WriteString(r.Value.Kind.Tag()); err != nil {
		return err
	}
	return r.Value.encodeTo(b)
}

// decodeRecord reads one record from b.
func decodeRecord(b *bytes.Buffer) (Record, error) {
	var nameLen uint32
	if err := binary.Read(b, binary.BigEndian, &nameLen); err != nil {
		return Record{}, fmt.Errorf("%w: truncated filename length", ErrMalformedRecord)
	}
	if int(2*nameLen) > b.Len() {
		return Record{}, fmt.Errorf("%w: filename length %d exceeds remaining %d", ErrMalformedRecord, 2*nameLen, b.Len())
	}
	rawName := make([]byte, 2*nameLen)
	if _, err := b.Read(rawName); err != nil {
		return Record{}, fmt.Errorf("%w: truncated filename", ErrMalformedRecord)
	}
	name, err := utf16Decode(rawName)
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad filename encoding", ErrMalformedRecord)
	}
	code := make([]byte, 4)
	if _, err := io.ReadFull(b, code); err != nil {
		return Record{}, fmt.Errorf("%w: truncated code", ErrMalformedRecord)
	}
	tag := make([]byte, 4)
	if _, err := io.ReadFull(b, tag); err != nil {
		return Record{}, fmt.Errorf("%w: truncated type tag", ErrMalformedRecord)
	}
	kind, ok := KindForTag(string(tag))
	if !ok {
		return Record{}, fmt.Errorf("%w: unknown type tag %q", ErrMalformedRecord, string(tag))
	}
	value, err := decodeValue(kind, b)
	if err != nil {
		return Record{}, err
	}
	return Record{Filename: name, Code: string(code), Value: value}, nil
}

var (
	utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

func utf16Encode(s string) ([]byte, error) {
	out, _, err := transform.Bytes(utf16BE.NewEncoder(), []byte(s))
	return out, err
}

func utf16Decode(raw []byte) (string, error) {
	out, _, err := transform.Bytes(utf16BE.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func utf16Length(s string) int {
	enc, err := utf16Encode(s)
	if err != nil {
		return 0
	}
	return len(enc) / 2
}
