package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/metrics"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

type PostService struct {
	posts  repository.PostRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, clk clock.Clock, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, clock: clk, logger: logger}
}

type CreatePostInput struct {
	Content        string `json:"content"`
	MediaURL       string `json:"mediaUrl"`
	MediaType      string `json:"mediaType"`
	Code           string `json:"code"`
	CodeLanguage   string `json:"codeLanguage"`
	CodeTitle      string `json:"codeTitle"`
	OriginalPostID string `json:"originalPostId"`
	ShareMessage   string `json:"shareMessage"`
}

// Create publishes a post authored by principal.
//
// The author's display fields are copied onto the post now and are not
// refreshed when the profile changes later. A post must carry something:
// text, media, code or a shared post.
func (s *PostService) Create(ctx context.Context, principal *model.User, in CreatePostInput) (*model.Post, error) {
	now := s.clock.Now()
	p := &model.Post{
		AuthorID:             principal.ID,
		AuthorUsername:       principal.Username,
		AuthorFirstName:      principal.FirstName,
		AuthorLastName:       principal.LastName,
		AuthorProfilePicture: principal.ProfilePicture,
		Content:              in.Content,
		MediaURL:             strings.TrimSpace(in.MediaURL),
		MediaType:            strings.TrimSpace(in.MediaType),
		Code:                 in.Code,
		CodeLanguage:         strings.ToLower(strings.TrimSpace(in.CodeLanguage)),
		CodeTitle:            strings.TrimSpace(in.CodeTitle),
		OriginalPostID:       strings.TrimSpace(in.OriginalPostID),
		ShareMessage:         in.ShareMessage,
		Likes:                []string{},
		Comments:             []model.Comment{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	p.IsCodePost = strings.TrimSpace(p.Code) != ""

	if !p.HasPayload() {
		return nil, apperror.ValidationFailed("content", "post must have content, media, code or a shared post")
	}
	if p.MediaURL == "" {
		p.MediaType = ""
	}
	if p.OriginalPostID != "" {
		if _, err := s.posts.GetPostByID(ctx, p.OriginalPostID); err != nil {
			return nil, fmt.Errorf("service/post: resolving shared post %s: %w", p.OriginalPostID, err)
		}
	}

	if err := s.posts.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}
	metrics.PostsCreated.Inc()

	s.logger.Info("post created",
		slog.String("postID", p.ID),
		slog.String("authorID", p.AuthorID),
		slog.Bool("code", p.IsCodePost),
	)
	return p, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	p, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/post: fetching %s: %w", id, err)
	}
	return p, nil
}

// ListByAuthor returns one author's posts newest first. Posts are public, so
// no principal is needed.
func (s *PostService) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	posts, err := s.posts.ListPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts by %s: %w", authorID, err)
	}
	return posts, nil
}

// Delete removes a post. Only its author may do so. Shares pointing at the
// post are left as they are.
func (s *PostService) Delete(ctx context.Context, principal *model.User, id string) error {
	p, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/post: fetching %s: %w", id, err)
	}
	if p.AuthorID != principal.ID {
		return apperror.Forbidden("you can only delete your own posts")
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("service/post: deleting %s: %w", id, err)
	}
	metrics.PostsDeleted.Inc()

	s.logger.Info("post deleted", slog.String("postID", id), slog.String("authorID", principal.ID))
	return nil
}
