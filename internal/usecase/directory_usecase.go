package usecase

import (
	"context"
	"strings"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
)

// SyntheticEmailDomain turns a bare username into a sign-in identifier.
const SyntheticEmailDomain = "example.com"

type DirectoryUseCase struct {
	userRepo repository.UserRepository
}

func NewDirectoryUseCase(userRepo repository.UserRepository) *DirectoryUseCase {
	return &DirectoryUseCase{
		userRepo: userRepo,
	}
}

// IdentifierFor normalizes what the user typed at sign-in or sign-up. Input
// without an "@" is a username.
func IdentifierFor(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" || strings.Contains(input, "@") {
		return input
	}
	return input + "@" + SyntheticEmailDomain
}

// Register writes the directory entry for a freshly signed-up session.
func (uc *DirectoryUseCase) Register(ctx context.Context, session *entity.Session, name string) (*entity.User, error) {
	user := &entity.User{
		UID:   session.UID,
		Email: session.Email,
		Name:  name,
		About: entity.DefaultAbout,
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *DirectoryUseCase) GetUser(ctx context.Context, identifier string) (*entity.User, error) {
	if identifier == "" {
		return nil, errors.Validation("User identifier is required", nil)
	}
	return uc.userRepo.GetByID(ctx, identifier)
}

// ListUsers returns the directory sorted by name, without the viewer.
func (uc *DirectoryUseCase) ListUsers(ctx context.Context, viewer string) ([]*entity.User, error) {
	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u.Email == viewer {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// Memberships resolves identifiers to active membership triples. Unknown
// identifiers fail with NOT_FOUND.
func (uc *DirectoryUseCase) Memberships(ctx context.Context, identifiers []string) ([]entity.Membership, error) {
	users, err := uc.userRepo.GetByIDs(ctx, identifiers)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.User, len(users))
	for _, u := range users {
		byID[u.Email] = u
	}

	out := make([]entity.Membership, 0, len(identifiers))
	for _, id := range identifiers {
		u, ok := byID[id]
		if !ok {
			return nil, errors.NotFound("User "+id, nil)
		}
		out = append(out, u.Membership())
	}
	return out, nil
}

func (uc *DirectoryUseCase) UpdateProfile(ctx context.Context, identifier, name, about string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Validation("Name is required", nil)
	}
	if strings.TrimSpace(about) == "" {
		about = entity.DefaultAbout
	}
	return uc.userRepo.UpdateProfile(ctx, identifier, name, about)
}
