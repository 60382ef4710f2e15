package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/metrics"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

// EngagementService mutates a post's likes and comments.
//
// Both operations are read-modify-write on the whole post document. Writes
// are compare-and-swap on the post version, and a lost swap re-reads and
// re-applies, so concurrent toggles and comments never overwrite each other.
type EngagementService struct {
	posts    repository.PostRepository
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewEngagementService(
	posts repository.PostRepository,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *EngagementService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &EngagementService{posts: posts, notifier: notifier, clock: clk, logger: logger}
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// ToggleLike flips the principal's like on the post. Anyone signed in may
// like any post, their own included.
func (s *EngagementService) ToggleLike(ctx context.Context, principal *model.User, postID string) (*LikeResult, error) {
	var (
		res      LikeResult
		authorID string
	)
	err := retryOnStale(ctx, "post", func() error {
		p, err := s.posts.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		res.Liked = p.ToggleLike(principal.ID)
		res.LikeCount = p.LikeCount()
		authorID = p.AuthorID
		return s.posts.UpdatePost(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("service/engagement: toggling like on %s: %w", postID, err)
	}

	outcome := "unliked"
	if res.Liked {
		outcome = "liked"
		s.notifier.Notify(ctx, authorID, principal, model.NotificationLike)
	}
	metrics.LikesToggled.WithLabelValues(outcome).Inc()

	s.logger.Debug("like toggled",
		slog.String("postID", postID),
		slog.String("userID", principal.ID),
		slog.Bool("liked", res.Liked),
	)
	return &res, nil
}

// AddComment appends a comment by the principal and returns the updated post.
// Blank content is rejected before the post is touched.
func (s *EngagementService) AddComment(ctx context.Context, principal *model.User, postID, content string) (*model.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "comment content is required")
	}

	var updated *model.Post
	err := retryOnStale(ctx, "post", func() error {
		p, err := s.posts.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}

		id := uuid.NewString()
		for p.HasComment(id) {
			id = uuid.NewString()
		}
		p.AppendComment(model.Comment{
			ID:                 id,
			UserID:             principal.ID,
			Username:           principal.Username,
			UserProfilePicture: principal.ProfilePicture,
			Content:            content,
			CreatedAt:          s.clock.Now(),
		})

		if err := s.posts.UpdatePost(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/engagement: commenting on %s: %w", postID, err)
	}

	metrics.CommentsAdded.Inc()
	s.notifier.Notify(ctx, updated.AuthorID, principal, model.NotificationComment)
	return updated, nil
}
