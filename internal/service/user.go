package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/auth"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	notifier  Notifier
	clock     clock.Clock
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *UserService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		notifier:  notifier,
		clock:     clk,
		logger:    logger,
	}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching %s: %w", id, err)
	}
	return u, nil
}

// ProfileUpdate carries the editable profile fields. A nil pointer or nil
// slice leaves the field unchanged.
type ProfileUpdate struct {
	FirstName       *string  `json:"firstName"`
	LastName        *string  `json:"lastName"`
	Bio             *string  `json:"bio"`
	Skills          []string `json:"skills"`
	ProfilePicture  *string  `json:"profilePicture"`
	Email           *string  `json:"email"`
	CurrentPassword string   `json:"currentPassword"`
	NewPassword     string   `json:"newPassword"`
}

// ProfileResult is the response to a profile update. Token is set whenever
// the update changed the email or password: older tokens stop working at that
// point, so the caller needs the new one to stay signed in.
type ProfileResult struct {
	User         *model.User `json:"user"`
	Token        string      `json:"token,omitempty"`
	EmailChanged bool        `json:"emailChanged"`
}

// UpdateProfile applies in to the principal's record.
//
// Changing the password requires the current one. Changing the email checks
// for collisions first and relies on the store's unique constraint for races.
func (s *UserService) UpdateProfile(ctx context.Context, principal *model.User, in ProfileUpdate) (*ProfileResult, error) {
	var newEmail string
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != principal.Email {
			newEmail = email
		}
	}

	var newHash string
	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, apperror.ValidationFailed("currentPassword", "current password is required to change the password")
		}
		if err := validatePassword("newPassword", in.NewPassword); err != nil {
			return nil, err
		}
	}

	if newEmail != "" {
		taken, err := s.users.UserExistsByEmail(ctx, newEmail)
		if err != nil {
			return nil, fmt.Errorf("service/user: checking email: %w", err)
		}
		if taken {
			return nil, apperror.AlreadyExists("user", "email", newEmail)
		}
	}

	var updated *model.User
	credentialsChanged := false
	err := retryOnStale(ctx, "user", func() error {
		u, err := s.users.GetUserByID(ctx, principal.ID)
		if err != nil {
			return err
		}

		if in.NewPassword != "" {
			if !u.HasPassword() {
				return apperror.ValidationFailed("currentPassword", "account has no password set")
			}
			if err := s.passwords.Verify(u.PasswordHash, in.CurrentPassword); err != nil {
				if errors.Is(err, auth.ErrPasswordMismatch) {
					return apperror.ValidationFailed("currentPassword", "current password is incorrect")
				}
				return err
			}
			if newHash == "" {
				if newHash, err = s.passwords.Hash(in.NewPassword); err != nil {
					return err
				}
			}
		}

		applyProfileFields(u, in)
		now := s.clock.Now()
		credentialsChanged = false
		if newEmail != "" && u.Email != newEmail {
			u.Email = newEmail
			credentialsChanged = true
		}
		if newHash != "" {
			u.PasswordHash = newHash
			credentialsChanged = true
		}
		if credentialsChanged {
			u.CredentialsChangedAt = now
		}
		u.UpdatedAt = now

		if err := s.users.UpdateUser(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/user: updating profile %s: %w", principal.ID, err)
	}

	res := &ProfileResult{User: updated, EmailChanged: newEmail != ""}
	if credentialsChanged {
		if res.Token, err = s.tokens.Issue(updated.Email); err != nil {
			return nil, fmt.Errorf("service/user: issuing token for %s: %w", updated.ID, err)
		}
		s.logger.Info("credentials changed",
			slog.String("userID", updated.ID),
			slog.Bool("emailChanged", res.EmailChanged),
		)
	}
	return res, nil
}

func applyProfileFields(u *model.User, in ProfileUpdate) {
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Skills != nil {
		skills := make([]string, 0, len(in.Skills))
		for _, sk := range in.Skills {
			skills = append(skills, strings.TrimSpace(sk))
		}
		u.Skills = model.UniqueStrings(skills)
	}
	if in.ProfilePicture != nil {
		if pic := strings.TrimSpace(*in.ProfilePicture); pic != "" {
			u.ProfilePicture = &pic
		} else {
			u.ProfilePicture = nil
		}
	}
}

// Follow adds targetID to the principal's following set. Following someone
// already followed is a no-op.
func (s *UserService) Follow(ctx context.Context, principal *model.User, targetID string) (*model.User, error) {
	return s.setFollowing(ctx, principal, targetID, true)
}

// Unfollow removes targetID from the principal's following set.
func (s *UserService) Unfollow(ctx context.Context, principal *model.User, targetID string) (*model.User, error) {
	return s.setFollowing(ctx, principal, targetID, false)
}

func (s *UserService) setFollowing(ctx context.Context, principal *model.User, targetID string, follow bool) (*model.User, error) {
	if targetID == principal.ID {
		return nil, apperror.ValidationFailed("userId", "you cannot follow yourself")
	}
	if _, err := s.users.GetUserByID(ctx, targetID); err != nil {
		return nil, fmt.Errorf("service/user: fetching follow target %s: %w", targetID, err)
	}

	var (
		updated *model.User
		changed bool
	)
	err := retryOnStale(ctx, "user", func() error {
		u, err := s.users.GetUserByID(ctx, principal.ID)
		if err != nil {
			return err
		}
		if follow {
			changed = u.Follow(targetID)
		} else {
			changed = u.Unfollow(targetID)
		}
		if !changed {
			updated = u
			return nil
		}
		u.UpdatedAt = s.clock.Now()
		if err := s.users.UpdateUser(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/user: updating following for %s: %w", principal.ID, err)
	}

	if follow && changed {
		s.notifier.Notify(ctx, targetID, updated, model.NotificationFollow)
	}
	return updated, nil
}
