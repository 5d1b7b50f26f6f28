package chunk

import (
	"encoding/binary"

	"github.com/dashpay/grovedb-sub005/grovedberr"
)

// Chunk blobs wrap a sequence of opaque entries (each entry here is one
// encoded merk.ProofOp, see op.go) in a format chosen to keep
// fixed-shape trunks cheap to store and CDN-cache: when every entry in
// the batch has the same length, the blob carries the length once in
// its header instead of once per entry.
const (
	formatVariable byte = 0x00
	formatFixed    byte = 0x01
)

// maxChunkEntries caps how many entries a single blob may claim to
// carry, guarding deserializeFixed/deserializeVariable against a
// corrupted or hostile header driving an enormous allocation. Chunk
// entry counts are bounded by a trunk/branch's configured depth (at
// most 2^depth-1 content entries plus boundary entries), so any
// legitimate blob stays far below this.
const maxChunkEntries = 1 << 20

// serializeChunkBlob frames entries into a single blob, auto-selecting
// the fixed layout when every entry shares a length and falling back to
// length-prefixed variable entries otherwise. An empty slice serializes
// to an empty blob.
func serializeChunkBlob(entries [][]byte) []byte {
	if len(entries) == 0 {
		return nil
	}
	allSameLen := true
	for _, e := range entries {
		if len(e) != len(entries[0]) {
			allSameLen = false
			break
		}
	}
	if allSameLen {
		return serializeFixed(entries)
	}
	return serializeVariable(entries)
}

// deserializeChunkBlob reverses serializeChunkBlob.
func deserializeChunkBlob(blob []byte) ([][]byte, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	switch blob[0] {
	case formatFixed:
		return deserializeFixed(blob[1:])
	case formatVariable:
		return deserializeVariable(blob[1:])
	default:
		return nil, grovedberr.InvalidProof("chunk: unknown blob format flag 0x%02x", blob[0])
	}
}

// Layout: [0x01] [count: u32 BE] [entrySize: u32 BE] [entry_0] [entry_1] ...
func serializeFixed(entries [][]byte) []byte {
	entrySize := len(entries[0])
	blob := make([]byte, 0, 1+4+4+len(entries)*entrySize)
	blob = append(blob, formatFixed)
	blob = appendUint32(blob, uint32(len(entries)))
	blob = appendUint32(blob, uint32(entrySize))
	for _, e := range entries {
		blob = append(blob, e...)
	}
	return blob
}

func deserializeFixed(data []byte) ([][]byte, error) {
	if len(data) < 8 {
		return nil, grovedberr.InvalidProof("chunk: fixed blob truncated at header")
	}
	count := binary.BigEndian.Uint32(data[0:4])
	entrySize := binary.BigEndian.Uint32(data[4:8])
	payload := data[8:]

	if uint64(count) > maxChunkEntries {
		return nil, grovedberr.InvalidProof("chunk: fixed blob count %d exceeds maximum %d", count, maxChunkEntries)
	}

	expected, overflowed := checkedMul32(count, entrySize)
	if overflowed {
		return nil, grovedberr.InvalidProof("chunk: fixed blob count %d * entrySize %d overflows", count, entrySize)
	}
	if uint64(len(payload)) != expected {
		return nil, grovedberr.InvalidProof("chunk: fixed blob payload is %d bytes, expected %d (count=%d, entrySize=%d)", len(payload), expected, count, entrySize)
	}

	entries := make([][]byte, count)
	for i := uint32(0); i < count; i++ {
		start := uint64(i) * uint64(entrySize)
		entries[i] = payload[start : start+uint64(entrySize)]
	}
	return entries, nil
}

// Layout: [0x00] [len_0: u32 BE] [entry_0] [len_1: u32 BE] [entry_1] ...
func serializeVariable(entries [][]byte) []byte {
	total := 1
	for _, e := range entries {
		total += 4 + len(e)
	}
	blob := make([]byte, 0, total)
	blob = append(blob, formatVariable)
	for _, e := range entries {
		blob = appendUint32(blob, uint32(len(e)))
		blob = append(blob, e...)
	}
	return blob
}

func deserializeVariable(data []byte) ([][]byte, error) {
	var entries [][]byte
	offset := 0
	for offset < len(data) {
		if len(entries) >= maxChunkEntries {
			return nil, grovedberr.InvalidProof("chunk: variable blob exceeds maximum %d entries", maxChunkEntries)
		}
		if offset+4 > len(data) {
			return nil, grovedberr.InvalidProof("chunk: blob truncated at length prefix")
		}
		length := binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
		end := offset + int(length)
		if end < offset || end > len(data) {
			return nil, grovedberr.InvalidProof("chunk: blob truncated at entry of length %d", length)
		}
		entries = append(entries, data[offset:end])
		offset = end
	}
	return entries, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func checkedMul32(a, b uint32) (result uint64, overflowed bool) {
	r := uint64(a) * uint64(b)
	if a != 0 && r/uint64(a) != uint64(b) {
		return 0, true
	}
	return r, false
}
