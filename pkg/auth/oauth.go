// Package auth runs the Google sign-in flow and keeps the resulting token in a signed cookie.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/drive.file",
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
}

type OAuth struct {
	config *oauth2.Config
}

func NewOAuth(config OAuthConfig) *OAuth {
	if config.Endpoint.AuthURL == "" {
		config.Endpoint = google.Endpoint
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     config.Endpoint,
			Scopes:       Scopes,
		},
	}
}

// AuthURL asks for offline access and always shows the consent screen so a
// refresh token is issued.
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return tok, nil
}

// TokenSource refreshes tok as needed.
func (o *OAuth) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return o.config.TokenSource(ctx, tok)
}

type UserInfo = oauth2api.Userinfo

func (o *OAuth) UserInfo(ctx context.Context, tok *oauth2.Token, opts ...option.ClientOption) (*UserInfo, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(o.TokenSource(ctx, tok))}, opts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	return info, nil
}
