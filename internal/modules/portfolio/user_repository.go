package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/rs/zerolog"
)

// UserRepository handles user database operations in ledger.db
type UserRepository struct {
	db  database.DBTX
	log zerolog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX, log zerolog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log.With().Str("repo", "user").Logger(),
	}
}

// EnsureUser inserts the user with the given id if it does not exist yet.
// An existing user is left unchanged.
func (r *UserRepository) EnsureUser(ctx context.Context, id int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, '', ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, name, time.Now().Unix(),
	)
	if err != nil {
		return domain.StoreErr("failed to ensure user", err)
	}
	return nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, name, email string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, domain.NewValidationError("name", "is required")
	}

	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)",
		name, strings.TrimSpace(email), now,
	)
	if err != nil {
		return User{}, domain.StoreErr("failed to create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, domain.StoreErr("failed to get insert ID", err)
	}

	r.log.Info().Int64("id", id).Str("name", name).Msg("User created")
	return User{ID: id, Name: name, Email: strings.TrimSpace(email), CreatedAt: time.Unix(now, 0).UTC()}, nil
}

// GetByID retrieves a user
func (r *UserRepository) GetByID(ctx context.Context, id int64) (User, error) {
	var u User
	var createdAt int64
	err := r.db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return User{}, domain.StoreErr("failed to get user", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// List returns all users ordered by id
func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, email, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, domain.StoreErr("failed to list users", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &createdAt); err != nil {
			return nil, domain.StoreErr("failed to scan user", err)
		}
		u.CreatedAt = time.Unix(createdAt, 0).UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating users", err)
	}
	return users, nil
}
