package chunk

import (
	"bytes"
	"testing"
)

func TestSerializeChunkBlobEmpty(t *testing.T) {
	if got := serializeChunkBlob(nil); got != nil {
		t.Fatalf("serializeChunkBlob(nil) = %v, want nil", got)
	}
	entries, err := deserializeChunkBlob(nil)
	if err != nil {
		t.Fatalf("deserializeChunkBlob(nil): %v", err)
	}
	if entries != nil {
		t.Fatalf("deserializeChunkBlob(nil) = %v, want nil", entries)
	}
}

func TestSerializeChunkBlobFixedRoundTrip(t *testing.T) {
	entries := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}
	blob := serializeChunkBlob(entries)
	if blob[0] != formatFixed {
		t.Fatalf("expected fixed format flag, got 0x%02x", blob[0])
	}
	got, err := deserializeChunkBlob(blob)
	if err != nil {
		t.Fatalf("deserializeChunkBlob: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if !bytes.Equal(got[i], entries[i]) {
			t.Fatalf("entry %d = %q, want %q", i, got[i], entries[i])
		}
	}
}

func TestSerializeChunkBlobVariableRoundTrip(t *testing.T) {
	entries := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc"), []byte("")}
	blob := serializeChunkBlob(entries)
	if blob[0] != formatVariable {
		t.Fatalf("expected variable format flag, got 0x%02x", blob[0])
	}
	got, err := deserializeChunkBlob(blob)
	if err != nil {
		t.Fatalf("deserializeChunkBlob: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if !bytes.Equal(got[i], entries[i]) {
			t.Fatalf("entry %d = %q, want %q", i, got[i], entries[i])
		}
	}
}

func TestSerializeChunkBlobSingleEntryPrefersFixed(t *testing.T) {
	blob := serializeChunkBlob([][]byte{[]byte("solo")})
	if blob[0] != formatFixed {
		t.Fatalf("expected single-entry blob to use fixed format, got 0x%02x", blob[0])
	}
}

func TestDeserializeChunkBlobUnknownFormatFlag(t *testing.T) {
	if _, err := deserializeChunkBlob([]byte{0xAB, 0, 0}); err == nil {
		t.Fatal("expected an error for an unknown format flag")
	}
}

func TestDeserializeFixedRejectsTruncatedHeader(t *testing.T) {
	if _, err := deserializeFixed([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected an error for a truncated fixed header")
	}
}

func TestDeserializeFixedRejectsCountOverCap(t *testing.T) {
	data := make([]byte, 8)
	// count = maxChunkEntries + 1, entrySize = 0
	big := uint32(maxChunkEntries + 1)
	data[0] = byte(big >> 24)
	data[1] = byte(big >> 16)
	data[2] = byte(big >> 8)
	data[3] = byte(big)
	if _, err := deserializeFixed(data); err == nil {
		t.Fatal("expected an error for an entry count over the DoS cap")
	}
}

func TestDeserializeFixedRejectsMismatchedPayloadLength(t *testing.T) {
	// count=2, entrySize=3, but payload is only 4 bytes.
	data := []byte{0, 0, 0, 2, 0, 0, 0, 3, 'a', 'b', 'c', 'd'}
	if _, err := deserializeFixed(data); err == nil {
		t.Fatal("expected an error for a payload length mismatch")
	}
}

func TestDeserializeVariableRejectsTruncatedEntry(t *testing.T) {
	// claims a 10-byte entry but supplies only 2.
	data := []byte{0, 0, 0, 10, 'h', 'i'}
	if _, err := deserializeVariable(data); err == nil {
		t.Fatal("expected an error for a truncated variable entry")
	}
}
