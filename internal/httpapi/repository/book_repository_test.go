package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestUpdateStock_AppliesDelta(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewBookRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "books" SET "stock"=stock + $1 WHERE id = $2 AND stock + $3 >= 0`)).
		WithArgs(-2, int64(7), -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStock(context.Background(), 7, -2)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStock_GuardRejectsNegativeResult(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewBookRepository(gdb)

	// WHERE guard filters the row out, so zero rows are touched
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "books" SET "stock"=stock + $1 WHERE id = $2 AND stock + $3 >= 0`)).
		WithArgs(-50, int64(7), -50).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStock(context.Background(), 7, -50)

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}
