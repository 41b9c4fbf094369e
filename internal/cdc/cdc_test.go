package cdc_test

import (
	"testing"

	"github.com/jackc/pglogrepl"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/cardinality-auditor/internal/cdc"
)

func usersRelation() *pglogrepl.RelationMessage {
	return &pglogrepl.RelationMessage{
		Namespace:    "public",
		RelationName: "users",
		Columns: []*pglogrepl.RelationMessageColumn{
			{Name: "id"},
			{Name: "email"},
			{Name: "bio"},
		},
	}
}

func TestExtractValues(t *testing.T) {
	t.Parallel()

	t.Run("text_columns_only", func(t *testing.T) {
		t.Parallel()

		tuple := &pglogrepl.TupleData{
			Columns: []*pglogrepl.TupleDataColumn{
				{DataType: pglogrepl.TupleDataTypeText, Data: []byte("7")},
				{DataType: pglogrepl.TupleDataTypeText, Data: []byte("a@example.com")},
				{DataType: pglogrepl.TupleDataTypeNull},
			},
		}

		got := cdc.ExtractValues(usersRelation(), tuple)

		assert.Equal(t, map[string]string{
			"id":    "7",
			"email": "a@example.com",
		}, got)
	})

	t.Run("toast_omitted", func(t *testing.T) {
		t.Parallel()

		tuple := &pglogrepl.TupleData{
			Columns: []*pglogrepl.TupleDataColumn{
				{DataType: pglogrepl.TupleDataTypeText, Data: []byte("7")},
				{DataType: pglogrepl.TupleDataTypeToast},
				{DataType: pglogrepl.TupleDataTypeText, Data: []byte("hi")},
			},
		}

		got := cdc.ExtractValues(usersRelation(), tuple)

		assert.Equal(t, map[string]string{"id": "7", "bio": "hi"}, got)
	})

	t.Run("nil_tuple", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, cdc.ExtractValues(usersRelation(), nil))
	})

	t.Run("extra_tuple_columns_ignored", func(t *testing.T) {
		t.Parallel()

		rel := &pglogrepl.RelationMessage{
			Namespace:    "public",
			RelationName: "narrow",
			Columns:      []*pglogrepl.RelationMessageColumn{{Name: "only"}},
		}
		tuple := &pglogrepl.TupleData{
			Columns: []*pglogrepl.TupleDataColumn{
				{DataType: pglogrepl.TupleDataTypeText, Data: []byte("x")},
				{DataType: pglogrepl.TupleDataTypeText, Data: []byte("orphan")},
			},
		}

		got := cdc.ExtractValues(rel, tuple)

		assert.Equal(t, map[string]string{"only": "x"}, got)
	})
}
