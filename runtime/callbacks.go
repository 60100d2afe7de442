package runtime

import (
	"runtime/cgo"
	"unsafe"

	"tinylambda/value"
)

// Callbacks is the fixed roster of host functions the generated code
// invokes. Every signature takes and returns pointer-sized handles (per
// the uniform "boxed handle" calling convention), except float_new which
// accepts a native double directly — codegen emits a constant double at
// the call site rather than boxing it twice — and string_from, which
// accepts the address of a NUL-terminated byte string.
//
// The codegen package binds each of these into the execution engine via
// purego.NewCallback, producing the C-callable function pointer that
// AddGlobalMapping needs.
type Callbacks struct {
	ctx *Context
}

// NewCallbacks binds the fixed roster to ctx.
func NewCallbacks(ctx *Context) *Callbacks {
	return &Callbacks{ctx: ctx}
}

func resolveHandle(h uintptr) *value.Value {
	if h == 0 {
		return value.Null
	}
	return value.FromHandle(h)
}

// GlobalGet implements global_get(ctx, name): name is an Array whose first
// element is a Str holding the global's key, optionally followed by
// further Str/Float segments descending through nested Dicts/Arrays.
// Returns an owning handle to the current value, or the Null sentinel
// (ResolveError surfaces as Null, never a fatal error).
func (cb *Callbacks) GlobalGet(ctxHandle, nameHandle uintptr) uintptr {
	pathArr := resolveHandle(nameHandle)
	segs := pathArr.Array
	if len(segs) == 0 {
		return value.Handle(value.Null)
	}

	cur := cb.ctx.Get(string(segs[0].Str))
	for _, seg := range segs[1:] {
		cur = descendOne(cur, seg)
	}
	return value.Handle(cur.Retain())
}

// GlobalGetFunc implements global_get_func: same lookup (including nested
// descent), but returns the raw code address if the resolved value is a
// Lambda, else 0.
func (cb *Callbacks) GlobalGetFunc(ctxHandle, nameHandle uintptr) uintptr {
	pathArr := resolveHandle(nameHandle)
	segs := pathArr.Array
	if len(segs) == 0 {
		return 0
	}

	cur := cb.ctx.Get(string(segs[0].Str))
	for _, seg := range segs[1:] {
		cur = descendOne(cur, seg)
	}
	if cur.Kind != value.KindLambda {
		return 0
	}
	return cur.LambdaAddr
}

// LambdaAddr implements the internal lambda_addr(h) helper the JIT builder
// uses to unwrap a Lambda value already held as a handle (a local
// parameter, or the result of evaluating an arbitrary expression in
// callee position), as opposed to one freshly looked up by name via
// GlobalGetFunc. Returns 0 if h is not a Lambda.
func (cb *Callbacks) LambdaAddr(h uintptr) uintptr {
	v := resolveHandle(h)
	if v.Kind != value.KindLambda {
		return 0
	}
	return v.LambdaAddr
}

// GlobalSet implements global_set(ctx, name, val): moves val into the
// globals dictionary under the access path's key. When the path has more
// than one segment it descends through nested Arrays/Dicts and binds at
// the leaf, per the nested-assignment redesign (SPEC_FULL.md §7):
// a missing intermediate resolves the assignment to a no-op rather than
// aborting, since a Go panic cannot safely unwind across the native,
// JIT-compiled stack frames sitting between this callback and the script
// statement that triggered it.
func (cb *Callbacks) GlobalSet(ctxHandle, nameHandle, valHandle uintptr) uintptr {
	pathArr := resolveHandle(nameHandle)
	v := resolveHandle(valHandle)
	segs := pathArr.Array
	if len(segs) == 0 {
		return value.Handle(value.Null)
	}

	key := string(segs[0].Str)
	if len(segs) == 1 {
		if old, ok := cb.ctx.Globals[key]; ok {
			old.Release()
		}
		cb.ctx.Globals[key] = v
		return value.Handle(value.Null)
	}

	cur := cb.ctx.Get(key)
	for i := 1; i < len(segs)-1; i++ {
		cur = descendOne(cur, segs[i])
		if cur == value.Null {
			return value.Handle(value.Null)
		}
	}
	assignLeaf(cur, segs[len(segs)-1], v)
	return value.Handle(value.Null)
}

// descendOne steps one access-path segment into a Dict (by Str key) or an
// Array (by Float index), returning Null on any shape/bounds mismatch.
func descendOne(cur *value.Value, seg *value.Value) *value.Value {
	switch cur.Kind {
	case value.KindDict:
		if seg.Kind != value.KindStr {
			return value.Null
		}
		if v, ok := cur.Dict[string(seg.Str)]; ok {
			return v
		}
		return value.Null
	case value.KindArray:
		if seg.Kind != value.KindFloat {
			return value.Null
		}
		idx := int(seg.Float)
		if idx < 0 || idx >= len(cur.Array) {
			return value.Null
		}
		return cur.Array[idx]
	default:
		return value.Null
	}
}

// assignLeaf binds v at the final access-path segment of cur, which must
// be a Dict (Str key) or an Array (Float index within bounds).
func assignLeaf(cur *value.Value, seg *value.Value, v *value.Value) {
	switch cur.Kind {
	case value.KindDict:
		if seg.Kind == value.KindStr {
			cur.DictInsert(string(seg.Str), v)
		}
	case value.KindArray:
		if seg.Kind == value.KindFloat {
			idx := int(seg.Float)
			if idx >= 0 && idx < len(cur.Array) {
				cur.Array[idx].Release()
				cur.Array[idx] = v
			}
		}
	}
}

// ArrayNew implements array_new().
func (cb *Callbacks) ArrayNew() uintptr {
	return value.Handle(value.NewArray())
}

// ArrayPush implements array_push(arr, v): moves v into arr. The Value's
// one owning reference now belongs to arr, so only vHandle's entry in the
// cgo handle table is discharged here — not a Release, which would drop
// the reference arr just took ownership of (see value.DeleteHandle).
func (cb *Callbacks) ArrayPush(arrHandle, vHandle uintptr) uintptr {
	arr := resolveHandle(arrHandle)
	v := resolveHandle(vHandle)
	arr.ArrayPush(v)
	if vHandle != 0 {
		cgo.Handle(vHandle).Delete()
	}
	return arrHandle
}

// DictNew implements dict_new().
func (cb *Callbacks) DictNew() uintptr {
	return value.Handle(value.NewDict())
}

// DictInsert implements dict_insert(d, k, v): moves v under key k into d.
// As in ArrayPush, vHandle's reference is now owned by d, so only its
// handle-table entry is discharged, never its refcount.
func (cb *Callbacks) DictInsert(dHandle, kHandle, vHandle uintptr) uintptr {
	d := resolveHandle(dHandle)
	k := resolveHandle(kHandle)
	v := resolveHandle(vHandle)
	d.DictInsert(string(k.Str), v)
	if vHandle != 0 {
		cgo.Handle(vHandle).Delete()
	}
	return dHandle
}

// DictRemove implements dict_remove(d, k): deletes a binding, returning
// the Null sentinel.
func (cb *Callbacks) DictRemove(dHandle, kHandle uintptr) uintptr {
	d := resolveHandle(dHandle)
	k := resolveHandle(kHandle)
	return value.Handle(d.DictRemove(string(k.Str)))
}

// StringFrom implements string_from(cstr): copies a NUL-terminated byte
// string reachable at the given native address into a new Str handle.
func (cb *Callbacks) StringFrom(cstrPtr uintptr) uintptr {
	if cstrPtr == 0 {
		return value.Handle(value.NewStr(nil))
	}
	var length int
	for {
		b := *(*byte)(unsafe.Pointer(cstrPtr + uintptr(length)))
		if b == 0 {
			break
		}
		length++
	}
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(cstrPtr)), length)
	return value.Handle(value.NewStr(bytes))
}

// FloatNew implements float_new(f): boxes a native double.
func (cb *Callbacks) FloatNew(f float64) uintptr {
	return value.Handle(value.NewFloat(f))
}

// LambdaNew implements lambda_new(addr): wraps a raw function address as
// a Lambda value. arity is threaded through by the builder at the call
// site that emits lambda_new, since the codegen signature is fixed-arity.
func (cb *Callbacks) LambdaNew(addr uintptr, arity uintptr) uintptr {
	return value.Handle(value.NewLambda(addr, int(arity)))
}

// ValueDelete implements value_delete(h): drops one owning reference to h
// and invalidates the handle.
func (cb *Callbacks) ValueDelete(h uintptr) uintptr {
	if h == 0 {
		return 0
	}
	resolveHandle(h).Release()
	cgo.Handle(h).Delete()
	return 0
}

// Truthy is internal plumbing the JIT builder uses to turn a boxed handle
// back into a native i64 0/1 for a conditional branch; it is not part of
// the fixed callback roster scripts can reference by name, since no
// script-visible operation ever needs a raw boolean. Non-Null is truthy,
// per the interpreter's adopted convention.
func (cb *Callbacks) Truthy(h uintptr) uintptr {
	if isTruthy(resolveHandle(h)) {
		return 1
	}
	return 0
}

func bothFloat(l, r *value.Value) (float64, float64, bool) {
	if l.Kind != value.KindFloat || r.Kind != value.KindFloat {
		return 0, 0, false
	}
	return l.Float, r.Float, true
}

func boolResult(ok bool) *value.Value {
	if ok {
		return value.NewFloat(1.0)
	}
	return value.Null
}

// Add implements the polymorphic add dispatch: today only Float×Float is
// defined; any other pair yields Float(0.0) as a safe default.
func (cb *Callbacks) Add(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	if !ok {
		return value.Handle(value.NewFloat(0))
	}
	return value.Handle(value.NewFloat(lf + rf))
}

func (cb *Callbacks) Sub(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	if !ok {
		return value.Handle(value.NewFloat(0))
	}
	return value.Handle(value.NewFloat(lf - rf))
}

func (cb *Callbacks) Mul(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	if !ok {
		return value.Handle(value.NewFloat(0))
	}
	return value.Handle(value.NewFloat(lf * rf))
}

func (cb *Callbacks) Div(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	if !ok || rf == 0 {
		return value.Handle(value.NewFloat(0))
	}
	return value.Handle(value.NewFloat(lf / rf))
}

// Mod implements the modulo operator the original source carries but the
// JIT historically left unimplemented; it is emitted faithfully here rather
// than rejected.
func (cb *Callbacks) Mod(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	if !ok || rf == 0 {
		return value.Handle(value.NewFloat(0))
	}
	quotient := float64(int64(lf / rf))
	return value.Handle(value.NewFloat(lf - quotient*rf))
}

func (cb *Callbacks) And(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	return value.Handle(boolResult(isTruthy(l) && isTruthy(r)))
}

func (cb *Callbacks) Or(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	return value.Handle(boolResult(isTruthy(l) || isTruthy(r)))
}

func (cb *Callbacks) Eq(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	return value.Handle(boolResult(ok && lf == rf))
}

func (cb *Callbacks) Neq(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	return value.Handle(boolResult(!ok || lf != rf))
}

func (cb *Callbacks) Gt(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	return value.Handle(boolResult(ok && lf > rf))
}

func (cb *Callbacks) Le(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	return value.Handle(boolResult(ok && lf < rf))
}

func (cb *Callbacks) Gte(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	return value.Handle(boolResult(ok && lf >= rf))
}

func (cb *Callbacks) Lee(lHandle, rHandle uintptr) uintptr {
	l, r := resolveHandle(lHandle), resolveHandle(rHandle)
	lf, rf, ok := bothFloat(l, r)
	return value.Handle(boolResult(ok && lf <= rf))
}

// isTruthy implements the non-Null-is-truthy convention adopted from the
// tree-walking interpreter.
func isTruthy(v *value.Value) bool {
	return v != nil && v.Kind != value.KindNull
}
