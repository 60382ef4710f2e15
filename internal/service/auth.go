// Package service holds the business rules. Services take the acting user as
// an explicit *model.User argument; they never read it from the context.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/auth"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 6
)

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	clock     clock.Clock
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	clk clock.Clock,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		clock:     clk,
		logger:    logger,
	}
}

// AuthResult is returned by every successful sign-in path.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Register creates an account and signs it in.
//
// Email and username uniqueness is checked up front so the caller learns which
// one clashed; the store's unique constraints still catch two registrations
// racing past the check.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}

	if taken, err := s.users.UserExistsByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	} else if taken {
		return nil, apperror.AlreadyExists("user", "email", email)
	}
	if taken, err := s.users.UserExistsByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	} else if taken {
		return nil, apperror.AlreadyExists("user", "username", username)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		Skills:       []string{},
		Following:    []string{},

		CredentialsChangedAt: now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.signIn(user)
}

// Login verifies email and password. Every failure that depends on the
// credentials themselves yields the same Unauthorized error so the response
// does not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if !user.HasPassword() {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("userID", user.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}
	return s.signIn(user)
}

// LoginWithGitHub signs in the account whose email matches the GitHub
// profile, creating a password-less account on first sign-in.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.Email == "" {
		return nil, apperror.ValidationFailed("email", "GitHub account has no usable email")
	}
	email, err := normalizeEmail(gh.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return s.signIn(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	username, err := s.freeUsername(ctx, gh.Login)
	if err != nil {
		return nil, err
	}
	first, last, _ := strings.Cut(strings.TrimSpace(gh.Name), " ")

	now := s.clock.Now()
	user = &model.User{
		Username:  username,
		Email:     email,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Role:      model.RoleLearner,
		Skills:    []string{},
		Following: []string{},

		CredentialsChangedAt: now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if gh.AvatarURL != "" {
		pic := gh.AvatarURL
		user.ProfilePicture = &pic
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %s: %w", username, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.signIn(user)
}

// freeUsername returns login, or login with a numeric suffix when taken.
func (s *AuthService) freeUsername(ctx context.Context, login string) (string, error) {
	base := strings.TrimSpace(login)
	for utf8.RuneCountInString(base) < minUsernameLen {
		base += "_"
	}
	if utf8.RuneCountInString(base) > maxUsernameLen-3 {
		base = string([]rune(base)[:maxUsernameLen-3])
	}

	candidate := base
	for i := 2; i < 1000; i++ {
		taken, err := s.users.UserExistsByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/auth: checking username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
	return "", apperror.AlreadyExists("user", "username", base)
}

func (s *AuthService) signIn(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// normalizeEmail trims and lower-cases an address and rejects anything that is
// not a bare addr-spec.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}

func validatePassword(field, pw string) error {
	if len(pw) < minPasswordLen || len(pw) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("password must be between %d and %d bytes", minPasswordLen, auth.MaxPasswordBytes))
	}
	return nil
}

func parseRole(raw string) (model.Role, error) {
	if raw == "" {
		return model.RoleLearner, nil
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", apperror.ValidationFailed("role", "role must be LEARNER or INSTRUCTOR")
	}
	return role, nil
}
