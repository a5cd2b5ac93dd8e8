package wire

import "testing"

func xread(streamName string, entries ...[]interface{}) interface{} {
	rows := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e)
	}
	return []interface{}{
		[]interface{}{streamName, rows},
	}
}

func TestDecodeWellFormedBatch(t *testing.T) {
	raw := xread("videogen:jobs",
		[]interface{}{"1700000000000-0", []interface{}{"id", "jobA"}},
		[]interface{}{"1700000000001-0", []interface{}{"id", "jobB", "extra", "ignored"}},
	)

	got := Decode(Of(raw))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != "1700000000000-0" || string(got[0].Fields["id"]) != "jobA" {
		t.Errorf("entry 0 decoded wrong: %+v", got[0])
	}
	if got[1].ID != "1700000000001-0" || string(got[1].Fields["id"]) != "jobB" {
		t.Errorf("entry 1 decoded wrong: %+v", got[1])
	}
	if string(got[1].Fields["extra"]) != "ignored" {
		t.Errorf("unknown field should be preserved, got %+v", got[1].Fields)
	}
}

func TestDecodeNilReplyOnTimeout(t *testing.T) {
	got := Decode(Of(nil))
	if got != nil {
		t.Errorf("expected nil on empty/timeout reply, got %+v", got)
	}
}

func TestDecodeMissingEntryIDDropped(t *testing.T) {
	raw := xread("videogen:jobs",
		[]interface{}{"", []interface{}{"id", "jobA"}},
		[]interface{}{"1700000000500-0", []interface{}{}},
	)

	got := Decode(Of(raw))
	if len(got) != 1 {
		t.Fatalf("expected the empty-id entry dropped, got %d entries: %+v", len(got), got)
	}
	if got[0].ID != "1700000000500-0" {
		t.Errorf("expected surviving entry to be the malformed-but-identified one, got %+v", got[0])
	}
	if len(got[0].Fields) != 0 {
		t.Errorf("expected no fields, got %+v", got[0].Fields)
	}
}

func TestDecodeIgnoresMalformedStreamPair(t *testing.T) {
	// A position that doesn't look like [stream_name, entries] is dropped
	// rather than panicking or corrupting the rest of the batch.
	raw := []interface{}{
		"not a pair",
		[]interface{}{"videogen:jobs", []interface{}{
			[]interface{}{"1700000000000-0", []interface{}{"id", "jobA"}},
		}},
	}

	got := Decode(Of(raw))
	if len(got) != 1 || got[0].ID != "1700000000000-0" {
		t.Fatalf("expected the malformed position skipped and the valid one decoded, got %+v", got)
	}
}

func TestDecodeMultipleStreamsInReply(t *testing.T) {
	raw := []interface{}{
		[]interface{}{"streamA", []interface{}{
			[]interface{}{"1700000000000-0", []interface{}{"id", "jobA"}},
		}},
		[]interface{}{"streamB", []interface{}{
			[]interface{}{"1700000000001-0", []interface{}{"id", "jobB"}},
		}},
	}

	got := Decode(Of(raw))
	if len(got) != 2 {
		t.Fatalf("expected entries from both streams, got %d: %+v", len(got), got)
	}
}

func TestDecodeOddFieldCountDropsTrailingKey(t *testing.T) {
	raw := xread("videogen:jobs",
		[]interface{}{"1700000000000-0", []interface{}{"id", "jobA", "trailing"}},
	)

	got := Decode(Of(raw))
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if _, ok := got[0].Fields["trailing"]; ok {
		t.Errorf("trailing unmatched key should be dropped, got %+v", got[0].Fields)
	}
}

func TestDecodeInvalidUTF8LossyFallback(t *testing.T) {
	raw := xread("videogen:jobs",
		[]interface{}{"1700000000000-0", []interface{}{"id", []byte{0xff, 0xfe, 'j', 'o', 'b'}}},
	)

	got := Decode(Of(raw))
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if len(got[0].Fields["id"]) == 0 {
		t.Errorf("expected lossy-decoded bytes to survive, got empty")
	}
}

func TestValueAsStringHandlesByteAndStringEncodings(t *testing.T) {
	byteVal := Of([]byte("hello"))
	s, ok := byteVal.AsString()
	if !ok || s != "hello" {
		t.Errorf("expected hello, got %q ok=%v", s, ok)
	}

	strVal := Of("world")
	s, ok = strVal.AsString()
	if !ok || s != "world" {
		t.Errorf("expected world, got %q ok=%v", s, ok)
	}

	nilVal := Of(nil)
	if _, ok := nilVal.AsString(); ok {
		t.Errorf("expected nil value to decode as absent")
	}
}
