package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

const Issuer = "social-media-api"

var ErrInvalidToken = errors.New("invalid token")

// Claims : le sujet est l'ID, le handle voyage à côté pour éviter un lookup par requête.
type Claims struct {
	Username string `json:"username"`
	Kind     string `json:"kind"` // "access" | "refresh"
	jwt.RegisteredClaims
}

type JWTProvider struct {
	privateKey    *rsa.PrivateKey
	publicKey     *rsa.PublicKey
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewJWTProvider parse les clés PEM (RS256).
func NewJWTProvider(privateKeyPEM, publicKeyPEM []byte) (*JWTProvider, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &JWTProvider{
		privateKey:    priv,
		publicKey:     pub,
		accessExpiry:  time.Hour,
		refreshExpiry: 7 * 24 * time.Hour,
		now:           time.Now,
	}, nil
}

func (j *JWTProvider) GenerateTokens(user *domain.User) (string, string, error) {
	access, err := j.sign(user, "access", j.accessExpiry)
	if err != nil {
		return "", "", err
	}
	refresh, err := j.sign(user, "refresh", j.refreshExpiry)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (j *JWTProvider) sign(user *domain.User, kind string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Username: user.Username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Validate n'accepte que des jetons d'accès RS256 non expirés et renvoie le handle.
func (j *JWTProvider) Validate(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return j.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Kind != "access" || claims.Username == "" {
		return "", ErrInvalidToken
	}
	return claims.Username, nil
}
