// Package value implements the tagged dynamic value at the heart of the
// runtime's data model: a reference-counted sum type with variants Null,
// Float, Str, Array, Dict and Lambda, plus the opaque-handle machinery used
// to pass Values across the boundary between generated machine code and
// host callback functions.
//
// Cycles are not supported: Arrays and Dicts hold shared-owning references
// to other Values, and a value graph that refers back to itself will never
// reach a zero refcount.
package value

import (
	"runtime/cgo"
	"sync/atomic"
)

// Kind discriminates the variant a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindFloat
	KindStr
	KindArray
	KindDict
	KindLambda
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindFloat:
		return "Float"
	case KindStr:
		return "Str"
	case KindArray:
		return "Array"
	case KindDict:
		return "Dict"
	case KindLambda:
		return "Lambda"
	default:
		return "Unknown"
	}
}

// Value is the tagged dynamic value. Only the fields matching Kind are
// meaningful. refcount is shared by every reference obtained via retain, so
// two Go-level pointers that alias the same logical value also share one
// counter.
type Value struct {
	Kind Kind

	Float float64
	Str   []byte
	Array []*Value
	Dict  map[string]*Value

	LambdaAddr  uintptr
	LambdaArity int

	refcount *int64
}

// Null is the shared, never-deleted sentinel returned by lookups that miss
// and by comparisons that evaluate false.
var Null = &Value{Kind: KindNull, refcount: new(int64)}

var (
	liveAllocs   int64
	totalDeletes int64
)

func newValue(v *Value) *Value {
	v.refcount = new(int64)
	*v.refcount = 1
	atomic.AddInt64(&liveAllocs, 1)
	return v
}

// NewFloat boxes a native double, transferring one owning reference to the
// caller, per float_new's contract.
func NewFloat(f float64) *Value {
	return newValue(&Value{Kind: KindFloat, Float: f})
}

// NewStr copies b into a new owned Str value.
func NewStr(b []byte) *Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return newValue(&Value{Kind: KindStr, Str: cp})
}

// NewArray creates an empty Array value.
func NewArray() *Value {
	return newValue(&Value{Kind: KindArray})
}

// NewDict creates an empty Dict value.
func NewDict() *Value {
	return newValue(&Value{Kind: KindDict})
}

// NewLambda wraps a raw machine-code entry address and its declared arity
// as a first-class Lambda value.
func NewLambda(addr uintptr, arity int) *Value {
	return newValue(&Value{Kind: KindLambda, LambdaAddr: addr, LambdaArity: arity})
}

// Retain adds one owning reference. Null is immortal and ignores Retain.
func (v *Value) Retain() *Value {
	if v == Null || v.refcount == nil {
		return v
	}
	atomic.AddInt64(v.refcount, 1)
	return v
}

// Release drops one owning reference. This is the Go-side counterpart of
// the value_delete callback (see runtime.Callbacks); once the count
// reaches zero the Value is considered dead and its pointer must not be
// dereferenced again. A dead Array or Dict releases the reference it held
// to each of its elements.
func (v *Value) Release() {
	if v == Null || v.refcount == nil {
		return
	}
	if atomic.AddInt64(v.refcount, -1) == 0 {
		atomic.AddInt64(&totalDeletes, 1)
		for _, elem := range v.Array {
			elem.Release()
		}
		for _, elem := range v.Dict {
			elem.Release()
		}
	}
}

// ArrayPush moves ownership of elem into arr.
func (arr *Value) ArrayPush(elem *Value) {
	arr.Array = append(arr.Array, elem)
}

// DictInsert moves ownership of v under key into d, releasing any value
// previously bound to the same key.
func (d *Value) DictInsert(key string, v *Value) {
	if d.Dict == nil {
		d.Dict = make(map[string]*Value)
	}
	if old, ok := d.Dict[key]; ok {
		old.Release()
	}
	d.Dict[key] = v
}

// DictRemove deletes the binding for key, if any, releasing the stored
// value. It returns the Null sentinel, matching global_get's
// miss-returns-Null convention.
func (d *Value) DictRemove(key string) *Value {
	if v, ok := d.Dict[key]; ok {
		v.Release()
		delete(d.Dict, key)
	}
	return Null
}

// Stats reports the module-wide allocation/deletion counters used by the
// leak-check testable property: after run() returns, live allocations
// should equal total deletions.
func Stats() (liveNew, deletes int64) {
	return atomic.LoadInt64(&liveAllocs), atomic.LoadInt64(&totalDeletes)
}

// Handle mints an opaque, pointer-sized identifier for v that is safe to
// pass through generated machine code: it will not be collected by the Go
// garbage collector for as long as the handle is live, even though no
// ordinary Go pointer to v is kept on the native-code side of the call.
//
// This is the one place the module reaches for the standard library
// instead of a third-party dependency — runtime/cgo.Handle (added in Go
// 1.17 for precisely this FFI boundary) is the idiomatic solution, and no
// library in the example corpus addresses "opaque GC-safe handle crossing
// into native code" more directly.
func Handle(v *Value) uintptr {
	return uintptr(cgo.NewHandle(v))
}

// FromHandle recovers the Value a Handle refers to without consuming the
// handle; the caller remains responsible for eventually calling
// DeleteHandle.
func FromHandle(h uintptr) *Value {
	return cgo.Handle(h).Value().(*Value)
}

// DeleteHandle invalidates a handle minted by Handle. It does not itself
// release the underlying Value's refcount — callers do that separately via
// Release, matching value_delete's "drop one owning reference" contract
// which operates on the Value, not the handle wrapper.
func DeleteHandle(h uintptr) {
	cgo.Handle(h).Delete()
}
