package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const (
	roleClaim            = "role"
	defaultVerifyTimeout = 5 * time.Second
)

// FirebaseVerifier verifies Firebase ID tokens via the Admin SDK. The role
// comes from a custom claim; tokens without one are customers.
type FirebaseVerifier struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// FirebaseConfig holds Admin SDK initialisation parameters.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFirebaseVerifier constructs a FirebaseVerifier backed by the Admin SDK.
func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("auth: firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client, timeout: defaultVerifyTimeout}, nil
}

// Verify checks the ID token and maps its claims to a Principal.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	if v == nil || v.client == nil {
		return Principal{}, errors.New("auth: firebase verifier not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	role := RoleCustomer
	if claimed, ok := decoded.Claims[roleClaim].(string); ok && claimed != "" {
		role = claimed
	}

	return Principal{UserID: decoded.UID, Role: role}, nil
}
