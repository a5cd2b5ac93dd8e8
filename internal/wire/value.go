// Package wire decodes the broker's untyped stream-read reply.
//
// redis.Client.Do(ctx, "XREAD", ...).Result() hands back the raw RESP2 reply
// shape: nested slices of interface{}, bulk strings as []byte or string, nil
// for missing fields. It is the same recursive-enum shape the Rust
// prototype this worker replaces called redis::Value::Bulk/Data/Nil. Value
// gives that shape a name so the decoder below can pattern-inspect it
// defensively instead of asserting a fixed Go type at every layer.
package wire

// Value is a small polymorphic reply type: exactly one field is meaningful
// for any given Value, selected by which constructor built it, except that
// an OK status reply also keeps its text in Str.
type Value struct {
	Array []Value
	Bytes []byte
	Str   string
	Int   int64
	Nil   bool
	OK    bool
}

// Of converts a raw interface{} from redis.Client.Do(...).Result() into a
// Value tree. Unknown concrete types become a Nil value rather than
// panicking — callers see an empty/absent value instead of a crash.
func Of(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Value{Nil: true}
	case []interface{}:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = Of(e)
		}
		return Value{Array: arr}
	case []byte:
		return Value{Bytes: t}
	case string:
		if t == "OK" {
			return Value{OK: true, Str: t}
		}
		return Value{Str: t}
	case int64:
		return Value{Int: t}
	case int:
		return Value{Int: int64(t)}
	default:
		return Value{Nil: true}
	}
}

// IsArray reports whether v holds an array, without panicking on any other
// shape.
func (v Value) IsArray() bool { return v.Array != nil }

// At returns the i-th element of an array Value, or the zero Value (Nil)
// when v is not an array or i is out of range. Every caller in this package
// goes through At/Bytes/String instead of indexing v.Array directly, so a
// truncated or malformed reply degrades to "missing field" rather than a
// panic.
func (v Value) At(i int) Value {
	if i < 0 || i >= len(v.Array) {
		return Value{Nil: true}
	}
	return v.Array[i]
}

// Len returns len(v.Array), or 0 when v is not an array.
func (v Value) Len() int { return len(v.Array) }

// AsBytes returns the raw bytes of a bulk-string Value, handling both the
// []byte and string encodings go-redis's raw Do() can produce.
func (v Value) AsBytes() ([]byte, bool) {
	switch {
	case v.Bytes != nil:
		return v.Bytes, true
	case v.Str != "":
		return []byte(v.Str), true
	case v.Nil || v.OK:
		return nil, false
	default:
		return nil, false
	}
}

// AsString lossily decodes a bulk-string Value as UTF-8: invalid byte
// sequences are replaced rather than rejected, per spec "decode keys and
// values as UTF-8 with lossy fallback."
func (v Value) AsString() (string, bool) {
	b, ok := v.AsBytes()
	if !ok {
		return "", false
	}
	return toValidUTF8(b), true
}
