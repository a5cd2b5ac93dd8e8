package wire

import "strings"

// Entry is a decoded stream record: the broker-assigned ID and its
// field/value pairs, preserved-but-ignored for any key besides "id".
type Entry struct {
	ID     string
	Fields map[string][]byte
}

// fieldKey is the single recognized field name (spec.md §3); all other
// keys are decoded and kept in Fields, but the dispatcher only ever reads
// this one.
const fieldKey = "id"

// FieldKey is exported so callers can pull the job ID out of Fields without
// duplicating the literal.
const FieldKey = fieldKey

// Decode walks the reply of `XREAD COUNT n BLOCK ms STREAMS <stream> <id>`
// — shaped `[[stream_name, [[entry_id, [k1,v1,k2,v2,...]], ...]]]` — and
// extracts (entry_id, fields) pairs. It never asserts the shape: any
// missing or extra layer, wrong arity, or non-array where an array was
// expected just drops that position and moves on, following the same
// resync-on-malformed-input discipline as the teacher's broker/stash.go.
func Decode(reply Value) []Entry {
	if reply.Nil || !reply.IsArray() {
		return nil
	}

	var out []Entry
	for i := 0; i < reply.Len(); i++ {
		pair := reply.At(i)
		if !looksLikeStreamPair(pair) {
			continue
		}
		out = append(out, decodeEntries(pair.At(1))...)
	}
	return out
}

// looksLikeStreamPair reports whether v resembles [stream_name, entries]:
// first element a bulk string, second an array.
func looksLikeStreamPair(v Value) bool {
	if v.Len() != 2 {
		return false
	}
	_, isBytes := v.At(0).AsBytes()
	return isBytes && v.At(1).IsArray()
}

func decodeEntries(entries Value) []Entry {
	var out []Entry
	for i := 0; i < entries.Len(); i++ {
		e := entries.At(i)
		id, ok := e.At(0).AsString()
		if !ok || id == "" {
			// spec.md §4.3: entry_id missing or empty — drop the position,
			// it cannot be acknowledged, cursor must not advance past it.
			continue
		}

		fields := decodeFields(e.At(1))
		out = append(out, Entry{ID: id, Fields: fields})
	}
	return out
}

// decodeFields turns a flat [k1,v1,k2,v2,...] Value into a map, dropping a
// trailing unmatched key rather than failing the whole entry. Keys and
// values are both lossily decoded as UTF-8.
func decodeFields(kv Value) map[string][]byte {
	fields := make(map[string][]byte, kv.Len()/2)
	for i := 0; i+1 < kv.Len(); i += 2 {
		k, ok := kv.At(i).AsString()
		if !ok {
			continue
		}
		v, _ := kv.At(i + 1).AsString()
		fields[k] = []byte(v)
	}
	return fields
}

// toValidUTF8 replaces invalid byte sequences with the Unicode replacement
// character instead of failing decode outright.
func toValidUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
