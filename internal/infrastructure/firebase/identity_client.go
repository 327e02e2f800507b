package firebase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"firechat/internal/domain/entity"
	apperrors "firechat/pkg/errors"
)

// IdentityClient signs users in and up against Firebase Authentication with
// the project's web API key, the way a client app does.
type IdentityClient struct {
	service *identitytoolkit.Service
	now     func() time.Time
}

func NewIdentityClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*IdentityClient, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &IdentityClient{service: service, now: time.Now}, nil
}

func (c *IdentityClient) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	resp, err := c.service.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify("Sign in failed", err)
	}

	return &entity.Session{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IdToken,
		ExpiresAt:   c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// SignUp creates the account and then signs in, so the returned session
// carries a regular ID token.
func (c *IdentityClient) SignUp(ctx context.Context, email, password, displayName string) (*entity.Session, error) {
	_, err := c.service.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify("Sign up failed", err)
	}

	session, err := c.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if session.DisplayName == "" {
		session.DisplayName = displayName
	}
	return session, nil
}

func (c *IdentityClient) UpdateDisplayName(ctx context.Context, session *entity.Session, name string) error {
	_, err := c.service.Relyingparty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:     session.IDToken,
		DisplayName: name,
	}).Context(ctx).Do()
	if err != nil {
		return classify("Profile update failed", err)
	}
	return nil
}

func classify(message string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return apperrors.Unavailable(message, err)
	}

	reason := apiErr.Message
	switch {
	case strings.HasPrefix(reason, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(reason, "INVALID_PASSWORD"),
		strings.HasPrefix(reason, "INVALID_LOGIN_CREDENTIALS"):
		return apperrors.Unauthorized("Invalid credentials", err)
	case strings.HasPrefix(reason, "EMAIL_EXISTS"):
		return apperrors.Validation("Identifier already in use", err)
	case strings.HasPrefix(reason, "WEAK_PASSWORD"), strings.HasPrefix(reason, "INVALID_EMAIL"):
		return apperrors.Validation(reason, err)
	case strings.HasPrefix(reason, "USER_DISABLED"):
		return apperrors.PermissionDenied("Account disabled", err)
	case strings.HasPrefix(reason, "INVALID_ID_TOKEN"), strings.HasPrefix(reason, "TOKEN_EXPIRED"):
		return apperrors.Unauthorized("Session expired", err)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
		return apperrors.Unavailable(message, err)
	case apiErr.Code == http.StatusForbidden:
		return apperrors.PermissionDenied(message, err)
	}
	return apperrors.Internal(message, err)
}
