// Package credentials supplies the opaque per-request credential sent to
// the telemetry API.
package credentials

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	shared "github.com/tracematch/sync-engine/pkg"
)

// Static wraps a fixed API key.
type Static struct {
	Key string
}

var _ shared.CredentialProvider = Static{}

func (s Static) Credential(ctx context.Context) (string, error) {
	if s.Key == "" {
		return "", fmt.Errorf("no API key configured")
	}
	return s.Key, nil
}

// TokenSource adapts an oauth2.TokenSource so OAuth-backed accounts plug in
// without the sync core knowing about refresh flows.
type TokenSource struct {
	Source oauth2.TokenSource
}

var _ shared.CredentialProvider = TokenSource{}

func (t TokenSource) Credential(ctx context.Context) (string, error) {
	if t.Source == nil {
		return "", fmt.Errorf("no token source configured")
	}
	token, err := t.Source.Token()
	if err != nil {
		return "", fmt.Errorf("resolve oauth token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token source returned empty access token")
	}
	return token.AccessToken, nil
}
