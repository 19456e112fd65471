package auth

import (
	"github.com/goliatone/go-errors"
)

// MintTokenPair signs a fresh access and refresh token for subject, both
// with their scope default lifetimes.
func MintTokenPair(ts *TokenService, subject string) (*TokenPair, error) {
	if ts == nil {
		return nil, errors.New("token service is required", errors.CategoryBadInput)
	}

	access, err := ts.Encode(NewClaims(subject), ScopeAccess, 0)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.Encode(NewClaims(subject), ScopeRefresh, 0)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, nil
}
