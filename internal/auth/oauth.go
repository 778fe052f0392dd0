package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the subset of the GitHub user payload the signin flow needs.
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type GitHubOAuth struct {
	config *oauth2.Config
}

func NewGitHubOAuth(clientID, clientSecret, redirectURL string) *GitHubOAuth {
	return &GitHubOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (g *GitHubOAuth) IsConfigured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

func (g *GitHubOAuth) AuthURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Exchange trades the callback code for an access token and fetches the
// user's profile. The primary verified email is resolved separately because
// the profile payload omits private emails.
func (g *GitHubOAuth) Exchange(ctx context.Context, code string) (GitHubUser, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return GitHubUser{}, fmt.Errorf("exchange oauth code: %w", err)
	}

	client := g.config.Client(ctx, token)
	user, err := fetchGitHubUser(ctx, client)
	if err != nil {
		return GitHubUser{}, err
	}
	if user.Email == "" {
		email, err := fetchPrimaryEmail(ctx, client)
		if err != nil {
			return GitHubUser{}, err
		}
		user.Email = email
	}
	if user.Name == "" {
		user.Name = user.Login
	}
	return user, nil
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (GitHubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return GitHubUser{}, fmt.Errorf("build user request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return GitHubUser{}, fmt.Errorf("fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GitHubUser{}, fmt.Errorf("fetch github user: status %d", resp.StatusCode)
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return GitHubUser{}, fmt.Errorf("decode github user: %w", err)
	}
	return user, nil
}

func fetchPrimaryEmail(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return "", fmt.Errorf("build emails request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch github emails: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch github emails: status %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("decode github emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", fmt.Errorf("no verified github email")
}
