package service

import (
	"context"
	"fmt"

	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

// FeedComposer builds a user's home feed from the following graph.
type FeedComposer struct {
	posts repository.PostRepository
}

func NewFeedComposer(posts repository.PostRepository) *FeedComposer {
	return &FeedComposer{posts: posts}
}

// Feed returns every post by the principal or anyone the principal follows,
// newest first with ties broken by id. The whole feed is returned in one
// response.
//
// TODO: add cursor pagination keyed on (createdAt, id) once feeds get large.
func (f *FeedComposer) Feed(ctx context.Context, principal *model.User) ([]model.Post, error) {
	posts, err := f.posts.ListPostsByAuthors(ctx, FeedAuthors(principal))
	if err != nil {
		return nil, fmt.Errorf("service/feed: composing feed for %s: %w", principal.ID, err)
	}
	return posts, nil
}

// FeedAuthors is {principal} ∪ principal.following, deduplicated.
func FeedAuthors(principal *model.User) []string {
	ids := make([]string, 0, len(principal.Following)+1)
	ids = append(ids, principal.ID)
	ids = append(ids, principal.Following...)
	return model.UniqueStrings(ids)
}
