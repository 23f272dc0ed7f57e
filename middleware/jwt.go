// middleware/jwt.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"p9e.in/energydesk/pkg/authz"
)

// SessionCookie is the cookie the identity provider sets for browser sessions.
const SessionCookie = "__session"

// Claims are the custom payload of a session token. The user id is the
// registered "sub" claim and the role lives under metadata.role.
type Claims struct {
	Metadata ClaimsMetadata `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

type ClaimsMetadata struct {
	Role string `json:"role,omitempty"`
}

// Identity converts verified claims into the caller identity.
func (c *Claims) Identity() authz.Identity {
	return authz.Identity{
		UserID: c.Subject,
		Role:   authz.ParseRole(c.Metadata.Role),
	}
}

// TokenVerifier checks session token signatures.
type TokenVerifier struct {
	key     any
	methods []string
	issuer  string
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, issuer string) *TokenVerifier {
	return &TokenVerifier{
		key:     secret,
		methods: []string{jwt.SigningMethodHS256.Alg()},
		issuer:  issuer,
	}
}

// NewRSAVerifier verifies RS256 tokens against a PEM encoded public key.
func NewRSAVerifier(publicKeyPEM []byte, issuer string) (*TokenVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse JWT public key: %w", err)
	}
	return &TokenVerifier{
		key:     key,
		methods: []string{jwt.SigningMethodRS256.Alg()},
		issuer:  issuer,
	}, nil
}

// NewVerifier prefers the RSA public key when both keys are configured.
func NewVerifier(secret, publicKeyPEM, issuer string) (*TokenVerifier, error) {
	if publicKeyPEM != "" {
		// .env files usually carry the PEM on one line with literal \n
		return NewRSAVerifier([]byte(strings.ReplaceAll(publicKeyPEM, `\n`, "\n")), issuer)
	}
	if secret == "" {
		return nil, errors.New("no JWT key configured")
	}
	return NewHMACVerifier([]byte(secret), issuer), nil
}

// Verify parses tokenStr and returns its claims when the signature, expiry
// and (if configured) issuer all check out.
func (v *TokenVerifier) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// GenerateToken creates an HS256 session token for userID with role, valid
// for ttl. Used by tests and the development token script.
func GenerateToken(secret []byte, userID, role, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Metadata: ClaimsMetadata{Role: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Authenticate resolves the caller identity from the bearer token (or the
// session cookie) and stashes it in the request context. It never rejects a
// request: routes decide through the authorization gate what an anonymous
// caller may do.
func Authenticate(verifier *TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := authz.Anonymous
			if tokenStr := tokenFromRequest(r); tokenStr != "" {
				claims, err := verifier.Verify(tokenStr)
				if err != nil {
					logger.Debug("rejected session token",
						zap.Error(err),
						zap.String("path", r.URL.Path),
					)
				} else {
					id = claims.Identity()
				}
			}
			next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), id)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// GetIdentity returns the caller identity attached by Authenticate.
func GetIdentity(r *http.Request) authz.Identity {
	return authz.FromContext(r.Context())
}
