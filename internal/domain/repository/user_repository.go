package repository

import (
	"context"

	"firechat/internal/domain/entity"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	UpdateProfile(ctx context.Context, id, name, about string) error
}
