package kv

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded
var ErrInvalidCursor = errors.New("invalid cursor")

// CursorSeparator is the delimiter between the table and the sequence number in a cursor
const CursorSeparator = ":"

// EncodeCursor serializes a continuation key into an opaque cursor.
// The cursor format is: base64(table:sequence)
func EncodeCursor(table string, seq int64) string {
	value := table + CursorSeparator + strconv.FormatInt(seq, 10)
	return base64.StdEncoding.EncodeToString([]byte(value))
}

// DecodeCursor returns the sequence number stored in a cursor issued for table.
// An empty cursor decodes to zero.
func DecodeCursor(table, cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	parts := strings.SplitN(string(decoded), CursorSeparator, 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: expected table:sequence", ErrInvalidCursor)
	}
	if parts[0] != table {
		return 0, fmt.Errorf("%w: issued for table %q", ErrInvalidCursor, parts[0])
	}

	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%w: bad sequence %q", ErrInvalidCursor, parts[1])
	}
	return seq, nil
}
