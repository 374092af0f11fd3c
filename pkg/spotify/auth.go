package spotify

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// AuthService implements the authorization-code flow with a proof key.
//
// One attempt is pending at a time. Begin replaces any earlier attempt.
type AuthService struct {
	client *Client

	mu       sync.Mutex
	verifier string
	state    string
	consumed bool
}

// Begin starts an authorization attempt and returns the URL the user must
// visit together with the state value the redirect will carry back.
//
// Example:
//
//	authURL, state, err := client.Auth().Begin()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Please visit:", authURL)
func (a *AuthService) Begin() (authURL string, state string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.verifier = oauth2.GenerateVerifier()
	a.state = oauth2.GenerateVerifier()
	a.consumed = false

	authURL = a.client.oauth.AuthCodeURL(a.state, oauth2.S256ChallengeOption(a.verifier))
	return authURL, a.state, nil
}

// Exchange trades the authorization code for a token and installs it on the
// client.
//
// The verifier is spent on the first call whether or not the exchange
// succeeds. Calling Exchange again for the same attempt returns
// ErrVerifierConsumed.
func (a *AuthService) Exchange(ctx context.Context, state, code string) (*oauth2.Token, error) {
	a.mu.Lock()
	if a.verifier == "" {
		consumed := a.consumed
		a.mu.Unlock()
		if consumed {
			return nil, ErrVerifierConsumed
		}
		return nil, ErrNoPendingAuth
	}
	if state != a.state {
		a.mu.Unlock()
		return nil, ErrStateMismatch
	}
	verifier := a.verifier
	a.verifier = ""
	a.state = ""
	a.consumed = true
	a.mu.Unlock()

	a.client.logDebugf("spotify: exchanging authorization code")

	tok, err := a.client.oauth.Exchange(a.client.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("spotify: token exchange failed: %w", err)
	}

	a.client.SetToken(tok)
	return tok, nil
}
