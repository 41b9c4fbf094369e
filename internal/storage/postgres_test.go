package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteQualified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table string
		want  string
	}{
		{
			name:  "bare_table",
			table: "users",
			want:  `"users"`,
		},
		{
			name:  "schema_qualified",
			table: "public.users",
			want:  `"public"."users"`,
		},
		{
			name:  "quote_in_name",
			table: `us"ers`,
			want:  `"us""ers"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, quoteQualified(tt.table))
		})
	}
}
