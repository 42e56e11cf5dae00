package utils

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SQLNullString(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want sql.NullString
	}{
		{
			name: "empty string",
			arg:  "",
			want: sql.NullString{String: "", Valid: false},
		},
		{
			name: "non-empty string",
			arg:  "hello",
			want: sql.NullString{String: "hello", Valid: true},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SQLNullString(tc.arg)
			assert.Equal(t, tc.want, got)
		})
	}
}
