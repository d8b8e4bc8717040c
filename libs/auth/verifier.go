package auth

import (
	"context"
	"strings"
)

// Verifier checks bearer tokens. HS256 tokens are verified with the shared
// secret; RS256 tokens carrying a kid are verified against the JWKS set when
// one is configured.
type Verifier struct {
	secret string
	jwks   *JWKSClient
}

func NewVerifier(secret string, jwksClient *JWKSClient) *Verifier {
	return &Verifier{secret: secret, jwks: jwksClient}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if v.jwks != nil {
		header, err := ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.jwks.Get(ctx, header.Kid)
			if err != nil {
				return nil, ErrInvalidToken
			}
			return VerifyRS256(token, pub)
		}
	}
	if v.secret == "" {
		return nil, ErrInvalidToken
	}
	return ParseAndVerifyHS256(token, v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
