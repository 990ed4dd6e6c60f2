package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xushnid/supertest-backend/internal/model"
)

// OperatorRepository handles operator account data access.
type OperatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository creates a new OperatorRepository.
func NewOperatorRepository(pool *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// GetByEmail retrieves an operator by email.
func (r *OperatorRepository) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	o := &model.Operator{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, chat_id, created_at
		 FROM operators WHERE email = $1`, email,
	).Scan(&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.ChatID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID retrieves an operator by id.
func (r *OperatorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	o := &model.Operator{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, chat_id, created_at
		 FROM operators WHERE id = $1`, id,
	).Scan(&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.ChatID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts a new operator account.
func (r *OperatorRepository) Create(ctx context.Context, o *model.Operator) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO operators (email, name, password_hash, chat_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		o.Email, o.Name, o.PasswordHash, o.ChatID,
	).Scan(&o.ID, &o.CreatedAt)
}
