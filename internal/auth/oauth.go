package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
)

// refreshWindow is how close to expiry a stored token is refreshed
const refreshWindow = 5 * time.Minute

// TokenStore persists the Drive OAuth token
type TokenStore interface {
	SaveTokenConfig(config *database.TokenConfig) error
	GetTokenConfig() (*database.TokenConfig, error)
}

// Service handles OAuth2 authentication for Google Drive API
type Service struct {
	config *oauth2.Config
	store  TokenStore
	now    func() time.Time
}

// TokenInfo represents token information for display
type TokenInfo struct {
	HasToken bool      `json:"has_token"`
	Expiry   time.Time `json:"expiry,omitempty"`
	Valid    bool      `json:"valid"`
}

// Option customizes the auth service
type Option func(*Service)

// WithEndpoint replaces the Google OAuth endpoint
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(s *Service) { s.config.Endpoint = endpoint }
}

// NewService creates a new auth service
func NewService(cfg config.OAuthConfig, store TokenStore, opts ...Option) *Service {
	s := &Service{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{drive.DriveFileScope},
			Endpoint:     google.Endpoint,
		},
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAuthURL returns the authorization URL for OAuth2 flow
func (s *Service) GetAuthURL() string {
	return s.config.AuthCodeURL("opsboard", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeToken exchanges authorization code for tokens and saves them
func (s *Service) ExchangeToken(ctx context.Context, authCode string) error {
	token, err := s.config.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}

	tokenConfig := &database.TokenConfig{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}

	if err := s.store.SaveTokenConfig(tokenConfig); err != nil {
		return fmt.Errorf("failed to save token config: %w", err)
	}

	return nil
}

// GetValidToken returns the stored token, refreshing it when it expires
// within five minutes
func (s *Service) GetValidToken(ctx context.Context) (*oauth2.Token, error) {
	tokenConfig, err := s.store.GetTokenConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get stored token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  tokenConfig.AccessToken,
		RefreshToken: tokenConfig.RefreshToken,
		TokenType:    tokenConfig.TokenType,
		Expiry:       tokenConfig.Expiry,
	}

	if !token.Expiry.Before(s.now().Add(refreshWindow)) {
		return token, nil
	}

	// Force a refresh by hiding the access token from the token source
	stale := *token
	stale.AccessToken = ""
	newToken, err := s.config.TokenSource(ctx, &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != tokenConfig.AccessToken {
		tokenConfig.AccessToken = newToken.AccessToken
		if newToken.RefreshToken != "" {
			tokenConfig.RefreshToken = newToken.RefreshToken
		}
		tokenConfig.Expiry = newToken.Expiry

		if err := s.store.SaveTokenConfig(tokenConfig); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
	}

	return newToken, nil
}

// HTTPClient returns an HTTP client authorized for Drive
func (s *Service) HTTPClient(ctx context.Context) (*http.Client, error) {
	token, err := s.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.config.Client(ctx, token), nil
}

// GetTokenInfo returns information about the current token
func (s *Service) GetTokenInfo() *TokenInfo {
	tokenConfig, err := s.store.GetTokenConfig()
	if err != nil {
		return &TokenInfo{HasToken: false}
	}

	return &TokenInfo{
		HasToken: true,
		Expiry:   tokenConfig.Expiry,
		Valid:    s.now().Before(tokenConfig.Expiry),
	}
}
