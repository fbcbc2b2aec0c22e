package users

import (
	"context"
	"testing"
	"time"

	"levtrade/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByChatID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery(`from users where chat_id = \$1`).WithArgs("42").
		WillReturnRows(pgxmock.NewRows([]string{"id", "chat_id", "address", "balance", "created_at"}).
			AddRow(int64(1), "42", "0xabc", decimal.NewFromInt(5_000_000), time.Now()))
	mock.ExpectQuery(`from users where chat_id = \$1`).WithArgs("43").WillReturnError(pgx.ErrNoRows)

	u, err := store.GetByChatID(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", u.Address)
	assert.True(t, u.Balance.Equal(decimal.NewFromInt(5_000_000)))

	_, err = store.GetByChatID(context.Background(), "43")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}
