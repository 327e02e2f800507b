package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"firechat/pkg/errors"
)

// FirebaseAuthClient verifies ID tokens with the Admin SDK.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) || auth.IsIDTokenInvalid(err) {
			return "", errors.Unauthorized("Invalid or expired token", err)
		}
		return "", errors.FromBackend("Failed to verify token", err)
	}

	return result.UID, nil
}
