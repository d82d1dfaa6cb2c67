package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"github.com/delordemm1/lms-api/internal/config"
)

const oauthStateTTL = 10 * time.Minute

// --- OAuth Provider Abstraction ---

// oAuthUserInfo holds the standardized user information extracted from a provider.
type oAuthUserInfo struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// OAuth is one configured identity provider.
type OAuth interface {
	getOAuthConfig() *oauth2.Config
	getUserInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error)
}

// oauthProvidersFromConfig builds the providers that have a client ID configured.
func oauthProvidersFromConfig(cfg *config.Config) map[OAuthProvider]OAuth {
	providers := make(map[OAuthProvider]OAuth)
	if cfg.Google.ClientID != "" {
		providers[OAuthProviderGoogle] = &googleProvider{
			config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			},
		}
	}
	if cfg.Facebook.ClientID != "" {
		providers[OAuthProviderFacebook] = &facebookProvider{
			config: &oauth2.Config{
				ClientID:     cfg.Facebook.ClientID,
				ClientSecret: cfg.Facebook.ClientSecret,
				RedirectURL:  cfg.Facebook.RedirectURL,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
		}
	}
	return providers
}

func (s *service) oauthProvider(provider OAuthProvider) (OAuth, error) {
	p, ok := s.oauth[provider]
	if !ok {
		return nil, ErrUnsupportedOAuthProvider.WithDetail(fmt.Sprintf("unsupported oauth provider: %s", provider))
	}
	return p, nil
}

// --- Google ---

type googleProvider struct {
	config *oauth2.Config
}

func (g *googleProvider) getOAuthConfig() *oauth2.Config { return g.config }

func (g *googleProvider) getUserInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error) {
	var info struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := fetchJSON(ctx, g.config.Client(ctx, token), "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	return &oAuthUserInfo{
		ID:        info.ID,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		AvatarURL: info.Picture,
	}, nil
}

// --- Facebook ---

type facebookProvider struct {
	config *oauth2.Config
}

func (f *facebookProvider) getOAuthConfig() *oauth2.Config { return f.config }

func (f *facebookProvider) getUserInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error) {
	var info struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	const url = "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture.type(large)"
	if err := fetchJSON(ctx, f.config.Client(ctx, token), url, &info); err != nil {
		return nil, fmt.Errorf("facebook profile: %w", err)
	}
	return &oAuthUserInfo{
		ID:        info.ID,
		Email:     info.Email,
		FirstName: info.FirstName,
		LastName:  info.LastName,
		AvatarURL: info.Picture.Data.URL,
	}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst)
}

// --- Main Service Methods ---

// InitiateOAuthLogin stores a single-use state with a PKCE verifier and returns the
// provider's consent URL.
func (s *service) InitiateOAuthLogin(ctx context.Context, provider OAuthProvider) (string, error) {
	p, err := s.oauthProvider(provider)
	if err != nil {
		return "", err
	}

	state, err := generateSecureToken(32)
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to generate oauth state: %w", err))
	}
	verifier := oauth2.GenerateVerifier()
	err = s.repo.InsertOAuthState(ctx, &OAuthState{
		State:     state,
		Provider:  provider,
		Verifier:  verifier,
		ExpiresAt: time.Now().Add(oauthStateTTL),
	})
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to store oauth state: %w", err))
	}

	return p.getOAuthConfig().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// HandleOAuthCallback consumes the state, exchanges the code, then finds or
// provisions the local account. Accounts with 2FA still get the SMS challenge.
func (s *service) HandleOAuthCallback(ctx context.Context, provider OAuthProvider, state, code string) (*LoginResult, error) {
	p, err := s.oauthProvider(provider)
	if err != nil {
		return nil, err
	}

	st, err := s.repo.ConsumeOAuthState(ctx, state, provider)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOAuthStateInvalid
		}
		s.logger.Error("error consuming oauth state", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if time.Now().After(st.ExpiresAt) {
		return nil, ErrOAuthStateInvalid
	}

	token, err := p.getOAuthConfig().Exchange(ctx, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		return nil, ErrOAuthExchangeFailed.WithCause(fmt.Errorf("failed to exchange oauth code for token: %w", err))
	}
	info, err := p.getUserInfo(ctx, token)
	if err != nil {
		return nil, ErrOAuthExchangeFailed.WithCause(err)
	}
	if info.Email == "" {
		return nil, ErrOAuthEmailMissing
	}

	u, err := s.findOrProvisionOAuthUser(ctx, provider, info)
	if err != nil {
		return nil, err
	}

	if u.TwoFactorEnabled {
		return s.startTwoFactorChallenge(ctx, u)
	}
	res, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in successfully via oauth", "provider", provider, "user_id", u.ID)
	return &LoginResult{User: res.User, Tokens: &res.Tokens}, nil
}

func (s *service) findOrProvisionOAuthUser(ctx context.Context, provider OAuthProvider, info *oAuthUserInfo) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, info.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to find user by email during oauth callback", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	u = &User{
		ID:            id.String(),
		Email:         normalizeEmail(info.Email),
		FirstName:     strings.TrimSpace(info.FirstName),
		LastName:      strings.TrimSpace(info.LastName),
		Role:          RoleStudent,
		EmailVerified: true,
		Provider:      Provider(provider),
	}
	if info.AvatarURL != "" {
		u.AvatarURL = &info.AvatarURL
	}

	if err := s.repo.Create(ctx, u); err != nil {
		// a concurrent callback for the same address won the insert
		if errors.Is(err, ErrEmailExists) {
			return s.repo.FindByEmail(ctx, info.Email)
		}
		s.logger.Error("failed to create new user from oauth", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	s.logger.Info("new user created via oauth", "user_id", u.ID, "provider", provider)
	return u, nil
}
