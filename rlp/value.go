package rlp

import "fmt"

// Value is the sole type carried on the wire: either a byte string or an
// ordered list of Values. Concretely it is either []byte or []Value — a
// two-arm sum type, per the Design Notes this package implements.
type Value interface{}

// String wraps a Go string as a byte-string Value for callers that would
// rather not spell out []byte(s) at every call site.
func String(s string) Value {
	return []byte(s)
}

// List constructs a list Value from its elements. List(a, b, c) is
// equivalent to the Go literal []Value{a, b, c}.
func List(elems ...Value) Value {
	if elems == nil {
		return []Value{}
	}
	return elems
}

// IsList reports whether v is a list Value (including the empty list).
func IsList(v Value) bool {
	_, ok := v.([]Value)
	return ok
}

// Bytes returns v's byte-string payload. It panics if v is not a byte
// string; callers that decoded v themselves know its shape by
// construction, and callers handling untrusted payloads should type-switch
// instead.
func Bytes(v Value) []byte {
	b, ok := v.([]byte)
	if !ok {
		panic(fmt.Sprintf("rlp: Bytes called on non-bytes Value %T", v))
	}
	return b
}

// Elems returns v's list elements. It panics if v is not a list.
func Elems(v Value) []Value {
	l, ok := v.([]Value)
	if !ok {
		panic(fmt.Sprintf("rlp: Elems called on non-list Value %T", v))
	}
	return l
}

// Equal reports whether a and b are the same Value by structural, not
// pointer, comparison.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []Value:
		bv, ok := b.([]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
