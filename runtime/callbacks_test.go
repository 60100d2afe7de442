package runtime

import (
	"testing"

	"tinylambda/value"
)

func nameHandle(key string) uintptr {
	arr := value.NewArray()
	arr.ArrayPush(value.NewStr([]byte(key)))
	return value.Handle(arr)
}

func TestGlobalSetThenGet(t *testing.T) {
	ctx := New()
	cb := NewCallbacks(ctx)

	v := value.Handle(value.NewFloat(3))
	cb.GlobalSet(0, nameHandle("x"), v)

	got := cb.GlobalGet(0, nameHandle("x"))
	result := resolveHandle(got)
	if result.Kind != value.KindFloat || result.Float != 3 {
		t.Fatalf("GlobalGet after GlobalSet = %#v, want Float(3)", result)
	}
}

func TestGlobalGetMissResolvesToNull(t *testing.T) {
	ctx := New()
	cb := NewCallbacks(ctx)

	got := cb.GlobalGet(0, nameHandle("missing"))
	if resolveHandle(got) != value.Null {
		t.Fatalf("GlobalGet on a missing key did not resolve to Null")
	}
}

func TestArithmeticDispatch(t *testing.T) {
	ctx := New()
	cb := NewCallbacks(ctx)

	l := value.Handle(value.NewFloat(10))
	r := value.Handle(value.NewFloat(4))

	cases := []struct {
		name string
		fn   func(uintptr, uintptr) uintptr
		want float64
	}{
		{"add", cb.Add, 14},
		{"sub", cb.Sub, 6},
		{"mul", cb.Mul, 40},
		{"div", cb.Div, 2.5},
		{"mod", cb.Mod, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveHandle(tc.fn(l, r))
			if got.Kind != value.KindFloat || got.Float != tc.want {
				t.Errorf("%s(10, 4) = %#v, want Float(%v)", tc.name, got, tc.want)
			}
		})
	}
}

func TestComparisonsYieldFloatOneOrNull(t *testing.T) {
	ctx := New()
	cb := NewCallbacks(ctx)

	same := value.Handle(value.NewFloat(1))
	other := value.Handle(value.NewFloat(2))

	eqTrue := resolveHandle(cb.Eq(same, value.Handle(value.NewFloat(1))))
	if eqTrue.Kind != value.KindFloat || eqTrue.Float != 1.0 {
		t.Errorf("Eq(1, 1) = %#v, want Float(1.0)", eqTrue)
	}

	eqFalse := resolveHandle(cb.Eq(same, other))
	if eqFalse != value.Null {
		t.Errorf("Eq(1, 2) = %#v, want Null", eqFalse)
	}
}

func TestArrayAndDictBuilders(t *testing.T) {
	ctx := New()
	cb := NewCallbacks(ctx)

	arrH := cb.ArrayNew()
	cb.ArrayPush(arrH, value.Handle(value.NewFloat(1)))
	cb.ArrayPush(arrH, value.Handle(value.NewFloat(2)))
	arr := resolveHandle(arrH)
	if len(arr.Array) != 2 {
		t.Fatalf("array has %d elements, want 2", len(arr.Array))
	}

	dictH := cb.DictNew()
	cb.DictInsert(dictH, value.Handle(value.NewStr([]byte("a"))), value.Handle(value.NewFloat(1)))
	dict := resolveHandle(dictH)
	if dict.Dict["a"].Float != 1 {
		t.Fatalf("dict[a] = %#v, want Float(1)", dict.Dict["a"])
	}
}
