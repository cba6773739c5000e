package session

import (
	"golang.org/x/oauth2"

	"tasktrack/internal/storage"
)

// persistedToken reads the credential straight from storage on every call,
// so the transport sees exactly what the session persisted.
type persistedToken struct {
	kv storage.Store
}

// NewTokenSource returns a TokenSource over the persisted credential. An
// absent credential yields a token with an empty AccessToken.
func NewTokenSource(kv storage.Store) oauth2.TokenSource {
	return persistedToken{kv: kv}
}

func (p persistedToken) Token() (*oauth2.Token, error) {
	tok, _, err := storage.Lookup(p.kv, storage.KeyToken)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
