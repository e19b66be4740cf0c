package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), ErrNotFound)

	dup := &pq.Error{Code: pqUniqueViolation, Constraint: "users_username_key"}
	err := mapError(dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "users_username_key")

	fk := &pq.Error{Code: pqForeignKeyViolation, Constraint: "books_owner_id_fkey"}
	assert.ErrorIs(t, mapError(fk), ErrNotFound)

	other := errors.New("connection reset")
	assert.Same(t, other, mapError(other))
}

func TestNullableIntRoundTrip(t *testing.T) {
	assert.False(t, nullableInt(nil).Valid)
	assert.Nil(t, intPtr(sql.NullInt64{}))

	year := 1965
	n := nullableInt(&year)
	assert.True(t, n.Valid)
	assert.Equal(t, 1965, *intPtr(n))
}
