package model

import (
	"slices"
	"strings"
	"time"
)

// Post is the unit of engagement.
//
// The Author* fields are copied from the author's profile when the post is
// created and are not refreshed when the profile changes later. Reads never
// join against users, at the cost of showing the name and picture the author
// had at posting time.
//
// Likes is a set of user ids. Comments is append-only and kept in the order
// the comments were added.
type Post struct {
	ID                   string  `json:"id"`
	AuthorID             string  `json:"authorId"`
	AuthorUsername       string  `json:"authorUsername"`
	AuthorFirstName      string  `json:"authorFirstName"`
	AuthorLastName       string  `json:"authorLastName"`
	AuthorProfilePicture *string `json:"authorProfilePicture"`

	Content   string `json:"content"`
	MediaURL  string `json:"mediaUrl,omitempty"`
	MediaType string `json:"mediaType,omitempty"`

	Code         string `json:"code,omitempty"`
	CodeLanguage string `json:"codeLanguage,omitempty"`
	CodeTitle    string `json:"codeTitle,omitempty"`
	IsCodePost   bool   `json:"isCodePost"`

	OriginalPostID string `json:"originalPostId,omitempty"`
	ShareMessage   string `json:"shareMessage,omitempty"`

	Likes    []string  `json:"likes"`
	Comments []Comment `json:"comments"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Version int64 `json:"-"`
}

// Comment is embedded in its parent post. Ids are unique within the post.
type Comment struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Username           string    `json:"username"`
	UserProfilePicture *string   `json:"userProfilePicture"`
	Content            string    `json:"content"`
	CreatedAt          time.Time `json:"createdAt"`
}

// HasPayload reports whether the post carries anything to show: text, media,
// code, or a reference to a shared post.
func (p *Post) HasPayload() bool {
	return strings.TrimSpace(p.Content) != "" ||
		strings.TrimSpace(p.MediaURL) != "" ||
		strings.TrimSpace(p.Code) != "" ||
		p.OriginalPostID != ""
}

// LikedBy reports whether userID is in the like set.
func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// ToggleLike flips userID's membership in the like set and returns the new
// state: true when the post is now liked by userID.
func (p *Post) ToggleLike(userID string) bool {
	if i := slices.Index(p.Likes, userID); i >= 0 {
		p.Likes = slices.Delete(p.Likes, i, i+1)
		return false
	}
	p.Likes = append(p.Likes, userID)
	return true
}

// LikeCount is the cardinality of the like set.
func (p *Post) LikeCount() int {
	return len(p.Likes)
}

// AppendComment adds c after every existing comment.
func (p *Post) AppendComment(c Comment) {
	p.Comments = append(p.Comments, c)
}

// HasComment reports whether a comment with the given id already exists.
func (p *Post) HasComment(id string) bool {
	return slices.ContainsFunc(p.Comments, func(c Comment) bool { return c.ID == id })
}
