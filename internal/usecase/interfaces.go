package usecase

import (
	"context"
	"io"

	"firechat/internal/domain/entity"
)

// IdentityProvider is the authentication backend used to open sessions.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*entity.Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (*entity.Session, error)
	UpdateDisplayName(ctx context.Context, session *entity.Session, name string) error
}

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// ImageStore holds message attachments and returns a URL clients can load.
type ImageStore interface {
	UploadImage(ctx context.Context, chatID string, file io.Reader, contentType string) (string, error)
	DeleteImage(ctx context.Context, fileURL string) error
}

// Publisher pushes a live event to every connection of a user.
type Publisher interface {
	Publish(userID, msgType, chatID string, data interface{})
}
