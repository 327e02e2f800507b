package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	if err := validate.Struct(user); err != nil {
		return errors.Validation("Invalid user", err)
	}
	_, err := r.client.Collection(usersCollection).Doc(user.Email).Set(ctx, user)
	if err != nil {
		return errors.FromBackend("Failed to save user", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.FromBackend("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	if user.Email == "" {
		user.Email = doc.Ref.ID
	}
	return &user, nil
}

func (r *firestoreUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.client.Collection(usersCollection).Doc(id)
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.FromBackend("Failed to get users", err)
	}

	users := make([]*entity.User, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			return nil, errors.NotFound("User "+doc.Ref.ID, nil)
		}
		var user entity.User
		if err := doc.DataTo(&user); err != nil {
			return nil, errors.Internal("Failed to parse user data", err)
		}
		if user.Email == "" {
			user.Email = doc.Ref.ID
		}
		users = append(users, &user)
	}
	return users, nil
}

func (r *firestoreUserRepository) List(ctx context.Context) ([]*entity.User, error) {
	iter := r.client.Collection(usersCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var users []*entity.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.FromBackend("Failed to list users", err)
		}

		var user entity.User
		if err := doc.DataTo(&user); err != nil {
			logger.Warn("Skipping malformed user %s: %v", doc.Ref.ID, err)
			continue
		}
		if user.Email == "" {
			user.Email = doc.Ref.ID
		}
		users = append(users, &user)
	}
	return users, nil
}

func (r *firestoreUserRepository) UpdateProfile(ctx context.Context, id, name, about string) error {
	_, err := r.client.Collection(usersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "name", Value: name},
		{Path: "about", Value: about},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("User", err)
		}
		return errors.FromBackend("Failed to update user", err)
	}
	return nil
}
