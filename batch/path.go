package batch

// absPathKey encodes path (every segment, including what a caller might
// think of as "the key") into a string safe for set/map membership, with
// each segment length-prefixed so no segment's bytes can be mistaken for
// a boundary between segments.
func absPathKey(path [][]byte) string {
	buf := make([]byte, 0, 64)
	for _, seg := range path {
		n := uint64(len(seg))
		for n >= 0x80 {
			buf = append(buf, byte(n)|0x80)
			n >>= 7
		}
		buf = append(buf, byte(n))
		buf = append(buf, seg...)
	}
	return string(buf)
}

func joinPath(path [][]byte, key []byte) [][]byte {
	full := make([][]byte, len(path)+1)
	copy(full, path)
	full[len(path)] = key
	return full
}

func hasPrefix(path, prefix [][]byte) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i, seg := range prefix {
		if string(path[i]) != string(seg) {
			return false
		}
	}
	return true
}
