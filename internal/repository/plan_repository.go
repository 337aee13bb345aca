package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studymate/backend/internal/models"
)

type PlanRepository struct {
	db *sql.DB
}

var _ PlanStore = (*PlanRepository)(nil)

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) List(ctx context.Context) ([]models.Plan, error) {
	const query = `
SELECT id, name, COALESCE(description, ''), currency, price_minor_units, credits, is_active, created_at, updated_at
FROM plans WHERE is_active = 1 ORDER BY price_minor_units`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Currency, &p.PriceMinorUnits, &p.Credits, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) GetByName(ctx context.Context, name models.PlanType) (*models.Plan, error) {
	const query = `
SELECT id, name, COALESCE(description, ''), currency, price_minor_units, credits, is_active, created_at, updated_at
FROM plans WHERE name = ?`
	row := r.db.QueryRowContext(ctx, query, name)
	var p models.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Currency, &p.PriceMinorUnits, &p.Credits, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan by name: %w", err)
	}
	return &p, nil
}

func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	const query = `
INSERT INTO plans (name, description, currency, price_minor_units, credits, is_active)
VALUES (?, NULLIF(?, ''), ?, ?, ?, ?)`
	active := 0
	if plan.IsActive {
		active = 1
	}
	res, err := r.db.ExecContext(ctx, query, plan.Name, plan.Description, plan.Currency, plan.PriceMinorUnits, plan.Credits, active)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("plan last insert id: %w", err)
	}
	plan.ID = id
	return plan, nil
}
