package scripting

import "fmt"

// Tag identifies the representation of a marshaled argument or return slot.
type Tag uint8

const (
	TagVoid Tag = iota
	TagByte
	TagWord
	TagDWord
	TagQWord
	TagFloat
	TagDouble
	TagString
	TagPointer
	TagObject
)

var tagNames = [...]string{"void", "byte", "word", "dword", "qword", "float", "double", "string", "pointer", "object"}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Value is a marshaled argument or return value. The set of implementations
// is closed: one type per Tag.
type Value interface {
	Tag() Tag
	sealed()
}

type (
	Void   struct{}
	Byte   uint8
	Word   uint16
	DWord  uint32
	QWord  uint64
	Float  float32
	Double float64
	String string
	// Pointer carries an opaque native handle. Scripts see it as light
	// userdata and can only hand it back.
	Pointer struct{ P any }
	// Object carries a script object or a registered native object. A nil
	// Ref is a null handle.
	Object struct{ Ref *Ref }
)

func (Void) Tag() Tag    { return TagVoid }
func (Byte) Tag() Tag    { return TagByte }
func (Word) Tag() Tag    { return TagWord }
func (DWord) Tag() Tag   { return TagDWord }
func (QWord) Tag() Tag   { return TagQWord }
func (Float) Tag() Tag   { return TagFloat }
func (Double) Tag() Tag  { return TagDouble }
func (String) Tag() Tag  { return TagString }
func (Pointer) Tag() Tag { return TagPointer }
func (Object) Tag() Tag  { return TagObject }

func (Void) sealed()    {}
func (Byte) sealed()    {}
func (Word) sealed()    {}
func (DWord) sealed()   {}
func (QWord) sealed()   {}
func (Float) sealed()   {}
func (Double) sealed()  {}
func (String) sealed()  {}
func (Pointer) sealed() {}
func (Object) sealed()  {}

// Int packs a signed integer into a DWord slot.
func Int(n int) DWord { return DWord(uint32(int32(n))) }

// Bool packs a boolean into a Byte slot.
func Bool(b bool) Byte {
	if b {
		return 1
	}
	return 0
}

// AsInt reads any integer slot as a signed int. Non-integer values yield 0.
func AsInt(v Value) int {
	switch x := v.(type) {
	case Byte:
		return int(int8(x))
	case Word:
		return int(int16(x))
	case DWord:
		return int(int32(x))
	case QWord:
		return int(int64(x))
	case Float:
		return int(x)
	case Double:
		return int(x)
	}
	return 0
}

// AsUint reads any integer slot without sign extension.
func AsUint(v Value) uint64 {
	switch x := v.(type) {
	case Byte:
		return uint64(x)
	case Word:
		return uint64(x)
	case DWord:
		return uint64(x)
	case QWord:
		return uint64(x)
	}
	return 0
}

func AsFloat(v Value) float64 {
	switch x := v.(type) {
	case Float:
		return float64(x)
	case Double:
		return float64(x)
	case Byte, Word, DWord, QWord:
		return float64(AsInt(x))
	}
	return 0
}

func AsBool(v Value) bool {
	switch x := v.(type) {
	case Byte, Word, DWord, QWord:
		return AsUint(x) != 0
	}
	return false
}

func AsString(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return ""
}

// AsRef returns the object reference of an Object value, or nil.
func AsRef(v Value) *Ref {
	if o, ok := v.(Object); ok {
		return o.Ref
	}
	return nil
}

// ReleaseValue drops the reference carried by an Object value returned from
// a call. Other values need no cleanup.
func ReleaseValue(v Value) {
	if o, ok := v.(Object); ok && o.Ref != nil {
		o.Ref.Release()
	}
}
