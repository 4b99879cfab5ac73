package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceRepositoryNext(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1")).
		WithArgs("invoice").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1")).
		WithArgs("invoice").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(8)))

	first, err := repo.Next(context.Background(), "invoice")
	require.NoError(t, err)
	second, err := repo.Next(context.Background(), "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), first)
	assert.Equal(t, int64(8), second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryErrors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sequences")).WillReturnError(errors.New("db down"))
	_, err := repo.Next(context.Background(), "invoice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advance sequence invoice")
	require.NoError(t, mock.ExpectationsWereMet())
}
