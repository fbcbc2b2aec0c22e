package users

import (
	"context"
	"errors"
	"fmt"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/model"

	"github.com/jackc/pgx/v5"
)

type Store struct {
	pool db.DBTX
}

func NewStore(pool db.DBTX) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetByChatID(ctx context.Context, chatID string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, "select id, chat_id, address, balance, created_at from users where chat_id = $1", chatID).
		Scan(&u.ID, &u.ChatID, &u.Address, &u.Balance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, apperr.ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user by chat id: %w", err)
	}
	return u, nil
}
