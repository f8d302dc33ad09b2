package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert member: %w", &pgconn.PgError{Code: "23505", ConstraintName: "members_email_key"})
	assert.True(t, IsUniqueViolation(err))
	assert.Equal(t, "members_email_key", ConstraintName(err))

	other := &pgconn.PgError{Code: "23503"}
	assert.False(t, IsUniqueViolation(other))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.Empty(t, ConstraintName(errors.New("boom")))
}
