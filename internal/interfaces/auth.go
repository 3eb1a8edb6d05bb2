package interfaces

import (
	"context"

	"scanner-approval/internal/types"
)

// Authenticator is the broker's redirect-based login boundary.
type Authenticator interface {
	LoginURL(apiKey string) string
	GenerateSession(ctx context.Context, apiKey, requestToken, apiSecret string) (types.Session, error)
	Profile(ctx context.Context, apiKey, accessToken string) (map[string]any, error)
	Invalidate(ctx context.Context, apiKey, accessToken string) error
}
