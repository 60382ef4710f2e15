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

var _ repository.LearningPlanRepository = (*DB)(nil)

const planColumns = `id, user_id, title, description, resources, weeks, created_at, updated_at`

func (db *DB) CreatePlan(ctx context.Context, p *model.LearningPlan) error {
	if p.ID == "" {
		p.ID = xid.New().String()
	}
	resources, weeks, err := encodePlanLists(p)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO learning_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Title, p.Description, resources, weeks,
		toNanos(p.CreatedAt), toNanos(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting learning plan: %w", err)
	}
	return nil
}

func (db *DB) GetPlanByID(ctx context.Context, id string) (*model.LearningPlan, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM learning_plans WHERE id = ?`, id)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("learning plan", id)
		}
		return nil, fmt.Errorf("sqlite: getting learning plan %s: %w", id, err)
	}
	return p, nil
}

func (db *DB) ListPlans(ctx context.Context) ([]model.LearningPlan, error) {
	return db.listPlans(ctx,
		`SELECT `+planColumns+` FROM learning_plans ORDER BY created_at DESC, id DESC`)
}

func (db *DB) ListPlansByUser(ctx context.Context, userID string) ([]model.LearningPlan, error) {
	return db.listPlans(ctx,
		`SELECT `+planColumns+` FROM learning_plans WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
}

func (db *DB) listPlans(ctx context.Context, query string, args ...any) ([]model.LearningPlan, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing learning plans: %w", err)
	}
	defer rows.Close()

	plans := []model.LearningPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning learning plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating learning plans: %w", err)
	}
	return plans, nil
}

func (db *DB) UpdatePlan(ctx context.Context, p *model.LearningPlan) error {
	resources, weeks, err := encodePlanLists(p)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE learning_plans SET title = ?, description = ?, resources = ?, weeks = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Description, resources, weeks, toNanos(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating learning plan %s: %w", p.ID, err)
	}
	return requireRow(res, "learning plan", p.ID)
}

func (db *DB) DeletePlan(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM learning_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting learning plan %s: %w", id, err)
	}
	return requireRow(res, "learning plan", id)
}

func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func encodePlanLists(p *model.LearningPlan) (resources, weeks string, err error) {
	if resources, err = encodeList(p.Resources); err != nil {
		return "", "", fmt.Errorf("sqlite: encoding resources: %w", err)
	}
	if weeks, err = encodeList(p.Weeks); err != nil {
		return "", "", fmt.Errorf("sqlite: encoding weeks: %w", err)
	}
	return resources, weeks, nil
}

func scanPlan(s rowScanner) (*model.LearningPlan, error) {
	var (
		p                model.LearningPlan
		resources, weeks string
		created, updated int64
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &resources, &weeks, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)

	if p.Resources, err = decodeList[model.PlanResource](resources); err != nil {
		return nil, fmt.Errorf("decoding resources: %w", err)
	}
	if p.Weeks, err = decodeList[model.PlanWeek](weeks); err != nil {
		return nil, fmt.Errorf("decoding weeks: %w", err)
	}
	return &p, nil
}
