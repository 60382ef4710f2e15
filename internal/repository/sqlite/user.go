package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, first_name, last_name, role, bio,
	skills, profile_picture, following, credentials_changed_at, version, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = xid.New().String()
	}
	skills, err := encodeList(u.Skills)
	if err != nil {
		return fmt.Errorf("sqlite: encoding skills: %w", err)
	}
	following, err := encodeList(u.Following)
	if err != nil {
		return fmt.Errorf("sqlite: encoding following: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.Bio,
		skills, nullString(u.ProfilePicture), following, toNanos(u.CredentialsChangedAt),
		toNanos(u.CreatedAt), toNanos(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "username or email already in use"}
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", u.Username, err)
	}
	u.Version = 1
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

// getUser looks a user up by one of its unique columns. column is never
// caller-supplied.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return u, nil
}

func (db *DB) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	return db.userExists(ctx, "email", email)
}

func (db *DB) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	return db.userExists(ctx, "username", username)
}

func (db *DB) userExists(ctx context.Context, column, value string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE `+column+` = ?)`, value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user %s: %w", column, err)
	}
	return exists, nil
}

func (db *DB) UpdateUser(ctx context.Context, u *model.User) error {
	skills, err := encodeList(u.Skills)
	if err != nil {
		return fmt.Errorf("sqlite: encoding skills: %w", err)
	}
	following, err := encodeList(u.Following)
	if err != nil {
		return fmt.Errorf("sqlite: encoding following: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?, first_name = ?, last_name = ?,
		        role = ?, bio = ?, skills = ?, profile_picture = ?, following = ?,
		        credentials_changed_at = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		string(u.Role), u.Bio, skills, nullString(u.ProfilePicture), following,
		toNanos(u.CredentialsChangedAt), toNanos(u.UpdatedAt),
		u.ID, u.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "username or email already in use"}
		}
		return fmt.Errorf("sqlite: updating user %s: %w", u.ID, err)
	}

	if err := db.checkSwapped(ctx, res, "users", u.ID); err != nil {
		return err
	}
	u.Version++
	return nil
}

// checkSwapped turns a zero-row compare-and-swap update into either NotFound
// (the record is gone) or ErrStaleWrite (the version moved).
func (db *DB) checkSwapped(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite: checking %s %s: %w", table, id, err)
	}
	if !exists {
		return apperror.NotFound(singular(table), id)
	}
	return repository.ErrStaleWrite
}

func singular(table string) string {
	switch table {
	case "users":
		return "user"
	case "posts":
		return "post"
	}
	return table
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u                         model.User
		role, skills, following   string
		picture                   sql.NullString
		credsAt, created, updated int64
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &u.Bio, &skills, &picture, &following, &credsAt, &u.Version, &created, &updated)
	if err != nil {
		return nil, err
	}

	u.Role = model.Role(role)
	u.ProfilePicture = stringPtr(picture)
	u.CredentialsChangedAt = fromNanos(credsAt)
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)

	if u.Skills, err = decodeList[string](skills); err != nil {
		return nil, fmt.Errorf("decoding skills: %w", err)
	}
	if u.Following, err = decodeList[string](following); err != nil {
		return nil, fmt.Errorf("decoding following: %w", err)
	}
	return &u, nil
}
