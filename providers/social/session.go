package social

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authconnect/chain"
)

// Session is the signed-in user as described by the backend's ID token.
type Session struct {
	Subject   string    `json:"sub"`
	AuthType  string    `json:"auth_type,omitempty"`
	Address   string    `json:"address"`
	ChainID   uint64    `json:"chain_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	IDToken   string    `json:"id_token"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime, zero when the token never expires.
func (s *Session) TTL(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// idClaims are the claims carried by the backend's ID token.
type idClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"wallet_address"`
	ChainID       any    `json:"chain_id,omitempty"`
	AuthType      string `json:"auth_type,omitempty"`
}

// tokenParser verifies and decodes ID tokens.
type tokenParser struct {
	secret []byte
	parser *jwt.Parser
}

func newTokenParser(secret, issuer string) *tokenParser {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &tokenParser{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Parse turns an ID token into a Session. Without a secret the signature is
// not checked, but expiry still is.
func (p *tokenParser) Parse(raw string) (*Session, error) {
	claims := &idClaims{}
	if len(p.secret) > 0 {
		if _, err := p.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return p.secret, nil
		}); err != nil {
			return nil, fmt.Errorf("id token: %w", err)
		}
	} else {
		if _, _, err := p.parser.ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("id token: %w", err)
		}
		if claims.ExpiresAt != nil && !time.Now().Before(claims.ExpiresAt.Time) {
			return nil, fmt.Errorf("id token: %w", jwt.ErrTokenExpired)
		}
	}

	address, err := chain.ChecksumAddress(claims.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("id token wallet_address: %w", err)
	}

	s := &Session{
		Subject:  claims.Subject,
		AuthType: claims.AuthType,
		Address:  address,
		IDToken:  raw,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.ChainID != nil {
		id, err := chain.ParseID(claims.ChainID)
		if err != nil {
			return nil, fmt.Errorf("id token chain_id: %w", err)
		}
		s.ChainID = id
	}
	return s, nil
}
