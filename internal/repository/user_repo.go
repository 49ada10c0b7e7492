package repository

import (
	"context"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb"
)

const UsersCollection = "_site_users"

type UserRepo struct {
	pool *db.Pool
}

func NewUserRepo(pool *db.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, UsersCollection, oxidb.IndexSpec{Fields: []string{"email"}, Unique: true})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return one[models.User](r.pool.Get().FindOne(ctx, UsersCollection, map[string]any{"email": email}))
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return one[models.User](r.pool.Get().FindOne(ctx, UsersCollection, byID(id)))
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) (string, error) {
	doc := map[string]any{
		"email":        user.Email,
		"passwordHash": user.PasswordHash,
		"name":         user.Name,
		"role":         user.Role,
		"createdAt":    user.CreatedAt,
	}
	return r.pool.Get().Insert(ctx, UsersCollection, doc)
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	return r.pool.Get().Count(ctx, UsersCollection, map[string]any{})
}
