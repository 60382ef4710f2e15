package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, author_id, author_username, author_first_name, author_last_name,
	author_profile_picture, content, media_url, media_type, code, code_language, code_title,
	is_code_post, original_post_id, share_message, likes, comments, version, created_at, updated_at`

// newest first; xid ids sort by creation time, so equal timestamps still
// come out in a fixed order
const postOrder = ` ORDER BY created_at DESC, id DESC`

func (db *DB) CreatePost(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = xid.New().String()
	}
	likes, comments, err := encodeEngagement(p)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		p.ID, p.AuthorID, p.AuthorUsername, p.AuthorFirstName, p.AuthorLastName,
		nullString(p.AuthorProfilePicture), p.Content, p.MediaURL, p.MediaType,
		p.Code, p.CodeLanguage, p.CodeTitle, p.IsCodePost, p.OriginalPostID, p.ShareMessage,
		likes, comments, toNanos(p.CreatedAt), toNanos(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("post", p.ID)
		}
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}
	p.Version = 1
	return nil
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return p, nil
}

func (db *DB) ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return db.ListPostsByAuthors(ctx, []string{authorID})
}

// ListPostsByAuthors returns every post whose author is in authorIDs. An empty
// set yields an empty list without touching the database.
func (db *DB) ListPostsByAuthors(ctx context.Context, authorIDs []string) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return []model.Post{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(authorIDs)), ",")
	args := make([]any, len(authorIDs))
	for i, id := range authorIDs {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE author_id IN (`+placeholders+`)`+postOrder,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// UpdatePost rewrites the mutable part of the document: content fields,
// likes, comments and updated_at. author_id and created_at never change.
func (db *DB) UpdatePost(ctx context.Context, p *model.Post) error {
	likes, comments, err := encodeEngagement(p)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET content = ?, media_url = ?, media_type = ?, code = ?, code_language = ?,
		        code_title = ?, is_code_post = ?, share_message = ?, likes = ?, comments = ?,
		        updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		p.Content, p.MediaURL, p.MediaType, p.Code, p.CodeLanguage,
		p.CodeTitle, p.IsCodePost, p.ShareMessage, likes, comments,
		toNanos(p.UpdatedAt), p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", p.ID, err)
	}

	if err := db.checkSwapped(ctx, res, "posts", p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (db *DB) DeletePost(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

func encodeEngagement(p *model.Post) (likes, comments string, err error) {
	if likes, err = encodeList(p.Likes); err != nil {
		return "", "", fmt.Errorf("sqlite: encoding likes: %w", err)
	}
	if comments, err = encodeList(p.Comments); err != nil {
		return "", "", fmt.Errorf("sqlite: encoding comments: %w", err)
	}
	return likes, comments, nil
}

func scanPost(s rowScanner) (*model.Post, error) {
	var (
		p                model.Post
		picture          sql.NullString
		likes, comments  string
		created, updated int64
	)
	err := s.Scan(&p.ID, &p.AuthorID, &p.AuthorUsername, &p.AuthorFirstName, &p.AuthorLastName,
		&picture, &p.Content, &p.MediaURL, &p.MediaType, &p.Code, &p.CodeLanguage, &p.CodeTitle,
		&p.IsCodePost, &p.OriginalPostID, &p.ShareMessage, &likes, &comments, &p.Version,
		&created, &updated)
	if err != nil {
		return nil, err
	}

	p.AuthorProfilePicture = stringPtr(picture)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)

	if p.Likes, err = decodeList[string](likes); err != nil {
		return nil, fmt.Errorf("decoding likes: %w", err)
	}
	if p.Comments, err = decodeList[model.Comment](comments); err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}
	return &p, nil
}
