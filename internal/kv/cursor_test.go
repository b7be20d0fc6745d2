package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

func TestEncodeCursor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		table    string
		seq      int64
		expected string
	}{
		{
			name:     "connectors table",
			table:    "connectors",
			seq:      42,
			expected: "Y29ubmVjdG9yczo0Mg==", // base64("connectors:42")
		},
		{
			name:     "zero sequence",
			table:    "jobs",
			seq:      0,
			expected: "am9iczow", // base64("jobs:0")
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, kv.EncodeCursor(tt.table, tt.seq))
		})
	}
}

func TestDecodeCursor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		table       string
		cursor      string
		expected    int64
		expectError bool
	}{
		{
			name:     "empty cursor",
			table:    "jobs",
			cursor:   "",
			expected: 0,
		},
		{
			name:     "round trip",
			table:    "connectors",
			cursor:   kv.EncodeCursor("connectors", 17),
			expected: 17,
		},
		{
			name:        "invalid base64",
			table:       "jobs",
			cursor:      "not-base64!!!",
			expectError: true,
		},
		{
			name:        "missing separator",
			table:       "jobs",
			cursor:      "am9icw==", // base64("jobs")
			expectError: true,
		},
		{
			name:        "cursor for another table",
			table:       "jobs",
			cursor:      kv.EncodeCursor("connectors", 3),
			expectError: true,
		},
		{
			name:        "non numeric sequence",
			table:       "jobs",
			cursor:      "am9iczphYmM=", // base64("jobs:abc")
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			seq, err := kv.DecodeCursor(tt.table, tt.cursor)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, seq)
		})
	}
}
