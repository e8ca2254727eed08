package classroom

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Vault owns the Google OAuth token pair of each owner. It hands out valid
// bearer tokens, refreshing silently through the OAuth client and persisting
// any rotated credentials before returning them to the caller.
//
// Refreshes for the same owner triggered by concurrent requests are not
// coordinated; the last successful refresh wins on persistence.
type Vault struct {
	conf  *oauth2.Config
	users user.Repository
}

func NewVault(conf *core.Config, users user.Repository) *Vault {
	return &Vault{
		conf: &oauth2.Config{
			ClientID:     conf.Google.ClientID,
			ClientSecret: conf.Google.ClientSecret,
			RedirectURL:  conf.Google.RedirectURL,
			Scopes:       conf.Google.Scopes,
			Endpoint:     google.Endpoint,
		},
		users: users,
	}
}

// AuthURL returns the consent page URL starting the grant; offline access and
// a forced consent prompt so Google always returns a refresh token.
func (v *Vault) AuthURL(state string) string {
	return v.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode redeems an authorization code for the initial token pair.
func (v *Vault) ExchangeCode(ctx context.Context, code string) (user.GoogleCredentials, error) {
	tok, err := v.conf.Exchange(ctx, code)
	if err != nil {
		return user.GoogleCredentials{}, mapOAuthError(err)
	}
	return user.GoogleCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// Token returns a valid bearer token for the owner, refreshing it first when
// expired. A rotated pair is persisted as a single write before the token is
// returned; a refresh response without a refresh token leaves the stored
// refresh token untouched.
func (v *Vault) Token(ctx context.Context, ownerID string) (string, error) {
	usr, err := v.users.GetUser(ctx, user.GetFilter{ID: ownerID})
	if err != nil {
		return "", err
	}
	creds := usr.Credentials
	if creds.Empty() {
		return "", ErrCredentialsMissing
	}

	stored := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
	}
	if !stored.Valid() && creds.RefreshToken == "" {
		// expired and nothing to refresh with; the owner must re-link
		return "", ErrUnauthorized
	}

	fresh, err := v.conf.TokenSource(ctx, stored).Token()
	if err != nil {
		return "", mapOAuthError(err)
	}

	if fresh.AccessToken != creds.AccessToken || (fresh.RefreshToken != "" && fresh.RefreshToken != creds.RefreshToken) {
		rotated := user.GoogleCredentials{
			AccessToken:  fresh.AccessToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       fresh.Expiry,
		}
		if fresh.RefreshToken != "" {
			rotated.RefreshToken = fresh.RefreshToken
		}
		if err = v.users.SaveGoogleCredentials(ctx, usr.ID, rotated); err != nil {
			return "", err
		}
	}
	return fresh.AccessToken, nil
}

func mapOAuthError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		code := rerr.Response.StatusCode
		if code == http.StatusBadRequest || code == http.StatusUnauthorized {
			// invalid_grant & friends: the stored pair is no longer honored
			return ErrUnauthorized
		}
		return &APIError{Code: code, Message: string(rerr.Body)}
	}
	return &TransientError{Err: err}
}
