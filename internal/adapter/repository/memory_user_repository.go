package repository

import (
	"context"
	"sort"
	"sync"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

func NewMemoryUserRepository() repository.UserRepository {
	return &memoryUserRepository{
		users: make(map[string]entity.User),
	}
}

func (r *memoryUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	if err := validate.Struct(user); err != nil {
		return errors.Validation("Invalid user", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Email] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, errors.NotFound("User "+id, err)
		}
		out = append(out, user)
	}
	return out, nil
}

func (r *memoryUserRepository) List(ctx context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (r *memoryUserRepository) UpdateProfile(ctx context.Context, id, name, about string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return errors.NotFound("User", nil)
	}
	user.Name = name
	user.About = about
	r.users[id] = user
	return nil
}
