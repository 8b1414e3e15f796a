package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	cardPrefix   = "card:"
	unitPrefix   = "unit:"
	vectorPrefix = "vec:"
	manifestKey  = "manifest"
)

// makeRowKey generates a key for a table row.
// Format: prefix + row as 8 BigEndian bytes, so keys sort in row order.
func makeRowKey(prefix string, row int) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(row))
	return buf
}

// parseRowKey extracts the row number from a key built by makeRowKey.
func parseRowKey(prefix string, key []byte) (int, error) {
	if len(key) != len(prefix)+8 || string(key[:len(prefix)]) != prefix {
		return 0, fmt.Errorf("malformed %q key %x", prefix, key)
	}
	return int(binary.BigEndian.Uint64(key[len(prefix):])), nil
}
