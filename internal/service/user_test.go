package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/model"
)

type userFixture struct {
	svc    *UserService
	repo   *fakeUserRepo
	notes  *fakeNotificationRepo
	clock  *clock.Stub
	passwd string
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	clk := clock.NewStub(t0)
	repo := newFakeUserRepo()
	notes := &fakeNotificationRepo{}
	notifier := NewNotificationService(notes, clk, testLogger())
	svc := NewUserService(repo, testTokens(t, clk), testPasswords(), notifier, clk, testLogger())
	return &userFixture{svc: svc, repo: repo, notes: notes, clock: clk, passwd: "analytical"}
}

func (f *userFixture) withPassword(t *testing.T, u *model.User) *model.User {
	t.Helper()
	hash, err := testPasswords().Hash(f.passwd)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	stored, _ := f.repo.GetUserByID(context.Background(), u.ID)
	stored.PasswordHash = hash
	if err := f.repo.UpdateUser(context.Background(), stored); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	return stored
}

func strPtr(s string) *string { return &s }

// ============================================================
// Profile
// ============================================================

func TestUpdateProfile_PlainFields(t *testing.T) {
	f := newUserFixture(t)
	ada := f.repo.seed(t, "ada")
	f.clock.Advance(time.Minute)

	res, err := f.svc.UpdateProfile(context.Background(), ada, ProfileUpdate{
		Bio:    strPtr("analyst"),
		Skills: []string{"math", " go ", "math", ""},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if res.Token != "" || res.EmailChanged {
		t.Errorf("no credential change expected, got token=%q emailChanged=%v", res.Token, res.EmailChanged)
	}
	if res.User.Bio != "analyst" {
		t.Errorf("Bio = %q", res.User.Bio)
	}
	if len(res.User.Skills) != 2 || res.User.Skills[0] != "math" || res.User.Skills[1] != "go" {
		t.Errorf("Skills = %v, want [math go]", res.User.Skills)
	}
	if !res.User.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", res.User.UpdatedAt)
	}
	if !res.User.CredentialsChangedAt.IsZero() {
		t.Error("CredentialsChangedAt should not move for plain fields")
	}
}

func TestUpdateProfile_EmailChangeReissuesToken(t *testing.T) {
	f := newUserFixture(t)
	ada := f.repo.seed(t, "ada")
	f.clock.Advance(time.Minute)

	res, err := f.svc.UpdateProfile(context.Background(), ada, ProfileUpdate{Email: strPtr("Countess@Example.com")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if !res.EmailChanged || res.Token == "" {
		t.Fatalf("got emailChanged=%v token=%q, want true and a token", res.EmailChanged, res.Token)
	}
	id, err := f.svc.tokens.Validate(res.Token)
	if err != nil || id.Email != "countess@example.com" {
		t.Errorf("new token subject = %q, %v", id.Email, err)
	}
	if !res.User.CredentialsChangedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("CredentialsChangedAt = %v", res.User.CredentialsChangedAt)
	}
	if _, err := f.repo.GetUserByEmail(context.Background(), "ada@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("old email should no longer resolve")
	}
}

func TestUpdateProfile_SameEmailIsNoChange(t *testing.T) {
	f := newUserFixture(t)
	ada := f.repo.seed(t, "ada")

	res, err := f.svc.UpdateProfile(context.Background(), ada, ProfileUpdate{Email: strPtr("ADA@example.com")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if res.EmailChanged || res.Token != "" {
		t.Errorf("got emailChanged=%v token=%q, want no change", res.EmailChanged, res.Token)
	}
}

func TestUpdateProfile_EmailCollisionIsConflict(t *testing.T) {
	f := newUserFixture(t)
	ada := f.repo.seed(t, "ada")
	f.repo.seed(t, "grace")

	_, err := f.svc.UpdateProfile(context.Background(), ada, ProfileUpdate{Email: strPtr("grace@example.com")})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdateProfile() error = %v, want ErrConflict", err)
	}
	got, _ := f.repo.GetUserByID(context.Background(), ada.ID)
	if got.Email != "ada@example.com" {
		t.Errorf("Email = %q, should be unchanged", got.Email)
	}
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	f := newUserFixture(t)
	ada := f.withPassword(t, f.repo.seed(t, "ada"))

	tests := []struct {
		name    string
		in      ProfileUpdate
		wantErr error
	}{
		{"missing current", ProfileUpdate{NewPassword: "difference"}, apperror.ErrValidation},
		{"wrong current", ProfileUpdate{CurrentPassword: "nope", NewPassword: "difference"}, apperror.ErrValidation},
		{"too short", ProfileUpdate{CurrentPassword: f.passwd, NewPassword: "123"}, apperror.ErrValidation},
		{"ok", ProfileUpdate{CurrentPassword: f.passwd, NewPassword: "difference"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.UpdateProfile(context.Background(), ada, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UpdateProfile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateProfile() error = %v", err)
			}
			if res.Token == "" || res.EmailChanged {
				t.Errorf("got token=%q emailChanged=%v; want a token and no email change", res.Token, res.EmailChanged)
			}
			if err := testPasswords().Verify(res.User.PasswordHash, "difference"); err != nil {
				t.Errorf("new password does not verify: %v", err)
			}
		})
	}
}

func TestUpdateProfile_RetriesLostSwap(t *testing.T) {
	f := newUserFixture(t)
	ada := f.repo.seed(t, "ada")

	raced := false
	f.repo.beforeUpdate = func() {
		if raced {
			return
		}
		raced = true
		competing, _ := f.repo.GetUserByID(context.Background(), ada.ID)
		competing.Follow("someone")
		f.repo.beforeUpdate = nil
		if err := f.repo.UpdateUser(context.Background(), competing); err != nil {
			t.Errorf("competing update: %v", err)
		}
	}

	res, err := f.svc.UpdateProfile(context.Background(), ada, ProfileUpdate{Bio: strPtr("retried")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if res.User.Bio != "retried" || !res.User.IsFollowing("someone") {
		t.Errorf("got %+v, want both writes kept", res.User)
	}
}

// ============================================================
// Follow
// ============================================================

func TestFollowUnfollow(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	ada := f.repo.seed(t, "ada")
	grace := f.repo.seed(t, "grace")

	u, err := f.svc.Follow(ctx, ada, grace.ID)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if !u.IsFollowing(grace.ID) {
		t.Fatal("ada should follow grace")
	}

	u, err = f.svc.Follow(ctx, ada, grace.ID)
	if err != nil {
		t.Fatalf("second Follow() error = %v", err)
	}
	if len(u.Following) != 1 {
		t.Errorf("Following = %v, want one entry", u.Following)
	}

	notes := f.notes.snapshot()
	if len(notes) != 1 || notes[0].UserID != grace.ID || notes[0].Type != model.NotificationFollow {
		t.Errorf("notifications = %+v, want one FOLLOW for grace", notes)
	}

	u, err = f.svc.Unfollow(ctx, ada, grace.ID)
	if err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	if u.IsFollowing(grace.ID) {
		t.Error("ada should no longer follow grace")
	}
}

func TestFollow_Errors(t *testing.T) {
	f := newUserFixture(t)
	ada := f.repo.seed(t, "ada")

	if _, err := f.svc.Follow(context.Background(), ada, ada.ID); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("self-follow error = %v, want ErrValidation", err)
	}
	if _, err := f.svc.Follow(context.Background(), ada, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown target error = %v, want ErrNotFound", err)
	}
}
