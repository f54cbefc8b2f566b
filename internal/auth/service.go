// Package auth verifies caller identity against the Firebase identity
// provider. The rest of the service depends only on the Verifier interface so
// tests can substitute a stub.
package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Identity is what a verified ID token resolves to.
type Identity struct {
	UID   string
	Email string
}

// Verifier checks a bearer ID token and returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebase initializes the Firebase app and its auth client.
// credentialsFile may be empty to use application-default credentials;
// FIREBASE_AUTH_EMULATOR_HOST routes verification to an emulator as usual.
func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify validates a Firebase ID token and returns the caller's identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := token.Claims["email"].(string)
	return &Identity{UID: token.UID, Email: email}, nil
}
