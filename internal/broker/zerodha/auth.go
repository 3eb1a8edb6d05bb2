package zerodha

import (
	"context"
	"encoding/json"
	"fmt"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/types"
)

// Auth performs the Kite Connect login exchange and token checks.
type Auth struct {
	BaseURI string
}

var _ interfaces.Authenticator = (*Auth)(nil)

func NewAuth(baseURI string) *Auth {
	return &Auth{BaseURI: baseURI}
}

func (a *Auth) LoginURL(apiKey string) string {
	return newClient(apiKey, "", a.BaseURI).GetLoginURL()
}

func (a *Auth) GenerateSession(ctx context.Context, apiKey, requestToken, apiSecret string) (types.Session, error) {
	kc := newClient(apiKey, "", a.BaseURI)
	us, err := kc.GenerateSession(requestToken, apiSecret)
	if err != nil {
		return types.Session{}, fmt.Errorf("token exchange failed: %w", err)
	}
	if us.AccessToken == "" {
		return types.Session{}, fmt.Errorf("token exchange failed: empty access token")
	}

	profile, err := toMap(us)
	if err != nil {
		return types.Session{}, err
	}
	// The access token is stored once, at the top level of the record.
	delete(profile, "access_token")
	delete(profile, "refresh_token")

	return types.Session{
		APIKey:      apiKey,
		AccessToken: us.AccessToken,
		Profile:     profile,
	}, nil
}

func (a *Auth) Profile(ctx context.Context, apiKey, accessToken string) (map[string]any, error) {
	kc := newClient(apiKey, accessToken, a.BaseURI)
	p, err := kc.GetUserProfile()
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	return toMap(p)
}

func (a *Auth) Invalidate(ctx context.Context, apiKey, accessToken string) error {
	kc := newClient(apiKey, accessToken, a.BaseURI)
	if _, err := kc.InvalidateAccessToken(); err != nil {
		return fmt.Errorf("invalidate access token: %w", err)
	}
	return nil
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return out, nil
}
