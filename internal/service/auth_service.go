package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"guessthesong/internal/model"
)

// AuthService verifies identity tokens issued by the identity provider and
// can mint guest identities for local play.
type AuthService struct {
	jwtSecret []byte
	issuer    string
	guestTTL  time.Duration
}

func NewAuthService(secret, issuer string, guestTTL time.Duration) *AuthService {
	if guestTTL <= 0 {
		guestTTL = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		issuer:    issuer,
		guestTTL:  guestTTL,
	}
}

// IssueGuest mints a signed identity for a display name.
func (s *AuthService) IssueGuest(req *model.GuestRequest) (*model.GuestResponse, error) {
	user := model.Identity{
		ID:          "guest_" + uuid.NewString(),
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}
	token, err := s.Sign(user, s.guestTTL)
	if err != nil {
		return nil, err
	}
	return &model.GuestResponse{
		Token: token,
		User:  user,
	}, nil
}

// Sign issues a token for an existing identity.
func (s *AuthService) Sign(user model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &model.IdentityClaims{
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken checks the signature and expiry of an identity token and
// returns the identity it carries.
func (s *AuthService) ValidateToken(tokenString string) (*model.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &model.IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*model.IdentityClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Subject
	}
	return &model.Identity{
		ID:          claims.Subject,
		DisplayName: name,
		AvatarURL:   claims.AvatarURL,
	}, nil
}
