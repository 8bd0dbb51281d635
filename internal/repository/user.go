package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"mailminder/internal/database"
	"mailminder/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	var email *string
	if u.Email != "" {
		email = &u.Email
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, email) VALUES ($1, $2)
		 RETURNING user_id, created_at`,
		u.Username, email,
	).Scan(&u.UserID, &u.CreatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	return r.getBy(ctx, `SELECT user_id, username, email, created_at FROM users WHERE user_id = $1`, userID)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, `SELECT user_id, username, email, created_at FROM users WHERE username = $1`, username)
}

func (r *UserRepository) SetEmail(ctx context.Context, userID int64, email string) error {
	var v *string
	if email != "" {
		v = &email
	}
	_, err := r.db.Pool.Exec(ctx, `UPDATE users SET email = $1 WHERE user_id = $2`, v, userID)
	return err
}

func (r *UserRepository) getBy(ctx context.Context, query string, arg any) (*models.User, error) {
	u := &models.User{}
	var email *string
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&u.UserID, &u.Username, &email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email != nil {
		u.Email = *email
	}
	return u, nil
}
