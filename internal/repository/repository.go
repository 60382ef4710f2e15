// Package repository declares the storage contracts the services depend on.
//
// Implementations return *apperror.AppError wrapping apperror.ErrNotFound for
// missing records and apperror.ErrConflict for uniqueness violations.
// Updates to users and posts are compare-and-swap on the record's Version and
// return ErrStaleWrite when another writer got there first.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/skillshare/internal/model"
)

// ErrStaleWrite means the record changed between read and write. Callers
// re-read and re-apply their mutation.
var ErrStaleWrite = errors.New("repository: stale write")

// UserRepository is the credential store.
type UserRepository interface {
	// CreateUser assigns an id when u.ID is empty and sets u.Version to 1.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
	UserExistsByUsername(ctx context.Context, username string) (bool, error)
	// UpdateUser writes u if the stored version still equals u.Version and
	// bumps u.Version on success.
	UpdateUser(ctx context.Context, u *model.User) error
}

// PostRepository is the post store. List results are newest first, ties
// broken by id descending.
type PostRepository interface {
	CreatePost(ctx context.Context, p *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error)
	ListPostsByAuthors(ctx context.Context, authorIDs []string) ([]model.Post, error)
	// UpdatePost has the same compare-and-swap contract as UpdateUser.
	UpdatePost(ctx context.Context, p *model.Post) error
	DeletePost(ctx context.Context, id string) error
}

type LearningPlanRepository interface {
	CreatePlan(ctx context.Context, p *model.LearningPlan) error
	GetPlanByID(ctx context.Context, id string) (*model.LearningPlan, error)
	ListPlans(ctx context.Context) ([]model.LearningPlan, error)
	ListPlansByUser(ctx context.Context, userID string) ([]model.LearningPlan, error)
	UpdatePlan(ctx context.Context, p *model.LearningPlan) error
	DeletePlan(ctx context.Context, id string) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// ListNotifications returns the recipient's notifications newest first.
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	// MarkNotificationRead only touches a notification owned by userID.
	MarkNotificationRead(ctx context.Context, id, userID string) error
}
