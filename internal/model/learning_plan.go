package model

import "time"

// LearningPlan is a user's structured study plan. It is stored and returned
// as-is; no business rules beyond ownership apply to it.
type LearningPlan struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Resources   []PlanResource `json:"resources"`
	Weeks       []PlanWeek     `json:"weeks"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type PlanResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"` // e.g. "Video", "Article"
}

type PlanWeek struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"` // e.g. "Not Started", "In Progress", "Completed"
}
