package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleConfig configures the Google provider. The endpoint URLs default to
// Google's and exist so tests can point them at a local server.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

type Google struct {
	cfg GoogleConfig
}

func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultGoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultGoogleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultGoogleUserInfoURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Google{cfg: cfg}
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {g.cfg.ClientID},
		"redirect_uri":  {g.cfg.CallbackURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	return g.cfg.AuthURL + "?" + params.Encode()
}

type googleToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange redeems code at the token endpoint and reads the userinfo
// endpoint with the resulting access token. Unverified emails are dropped so
// they cannot be used to link to an existing account.
func (g *Google) Exchange(ctx context.Context, code string) (domain.FederatedProfile, error) {
	tok, err := g.exchangeToken(ctx, code)
	if err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("google token exchange: %w", err)
	}

	info, err := g.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("google userinfo: %w", err)
	}

	email := info.Email
	if !info.EmailVerified {
		email = ""
	}

	return domain.FederatedProfile{
		Provider:   g.Name(),
		ExternalID: info.Sub,
		Name:       info.Name,
		Email:      email,
		AvatarURL:  info.Picture,
	}, nil
}

func (g *Google) exchangeToken(ctx context.Context, code string) (googleToken, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
		"redirect_uri":  {g.cfg.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return googleToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok googleToken
	if err := g.do(req, &tok); err != nil {
		return googleToken{}, err
	}
	if tok.AccessToken == "" {
		return googleToken{}, errors.New("empty access token")
	}
	return tok, nil
}

func (g *Google) fetchUserInfo(ctx context.Context, accessToken string) (googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.UserInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info googleUserInfo
	if err := g.do(req, &info); err != nil {
		return googleUserInfo{}, err
	}
	if info.Sub == "" {
		return googleUserInfo{}, errors.New("empty sub")
	}
	return info, nil
}

func (g *Google) do(req *http.Request, out any) error {
	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

var _ Provider = (*Google)(nil)
