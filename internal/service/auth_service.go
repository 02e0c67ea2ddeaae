package service

import (
	"context"
	"errors"
	"net/http"

	"go-pms-api/internal/model"
	"go-pms-api/pkg/jwt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	TokenPair
	User        model.User `json:"user"`
	Permissions []string   `json:"permissions"`
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	User        model.User
	Permissions []string
}

// Has reports whether the principal holds the permission.
func (p Principal) Has(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

type AuthService struct {
	users  *UserService
	tokens *jwt.TokenManager
}

func NewAuthService(users *UserService, tokens *jwt.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Login(ctx context.Context, email, password string) Result[LoginResponse] {
	user, ok, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Failed[LoginResponse](http.StatusInternalServerError, err.Error())
	}
	if !ok || !user.CheckPassword(password) {
		return Failed[LoginResponse](http.StatusUnauthorized, ErrInvalidCredentials.Error())
	}

	pair, err := s.issue(user)
	if err != nil {
		return Failed[LoginResponse](http.StatusInternalServerError, "failed to generate token")
	}
	perms, err := s.users.PermissionsOf(ctx, user)
	if err != nil {
		return Failed[LoginResponse](http.StatusInternalServerError, err.Error())
	}
	return Success(http.StatusOK, LoginResponse{TokenPair: pair, User: user, Permissions: perms})
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) Result[TokenPair] {
	claims, err := s.tokens.VerifyToken(refreshToken)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Failed[TokenPair](http.StatusUnauthorized, "Token expired")
	case err != nil, claims.Kind != jwt.Refresh:
		return Failed[TokenPair](http.StatusUnauthorized, "Invalid token")
	}

	res := s.users.FindOne(ctx, claims.UserID)
	if !res.OK() {
		if res.StatusCode == http.StatusNotFound {
			return Failed[TokenPair](http.StatusUnauthorized, "Invalid token")
		}
		return Failed[TokenPair](res.StatusCode, res.Message)
	}
	pair, err := s.issue(res.Value())
	if err != nil {
		return Failed[TokenPair](http.StatusInternalServerError, "failed to generate token")
	}
	return Success(http.StatusOK, pair)
}

// Authenticate verifies an access token and resolves the caller's permissions.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := s.tokens.VerifyToken(accessToken)
	if err != nil {
		return Principal{}, err
	}
	if claims.Kind != jwt.Access {
		return Principal{}, jwt.ErrTokenInvalid
	}
	res := s.users.FindOne(ctx, claims.UserID)
	if !res.OK() {
		if res.StatusCode == http.StatusNotFound {
			return Principal{}, ErrUserNotFound
		}
		return Principal{}, errors.New(res.Message)
	}
	user := res.Value()
	perms, err := s.users.PermissionsOf(ctx, user)
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Permissions: perms}, nil
}

func (s *AuthService) issue(user model.User) (TokenPair, error) {
	payload := jwt.Payload{UserID: user.ID.String()}
	access, err := s.tokens.GenerateToken(payload, jwt.Access)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.GenerateToken(payload, jwt.Refresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
