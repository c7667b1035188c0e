package models

import "time"

// AccessScope identifies what a visibility rule applies to.
type AccessScope string

const (
	AccessScopeModule AccessScope = "module"
	AccessScopeLesson AccessScope = "lesson"
)

// AccessRule is a per-module/lesson visibility rule. Writes are
// last-write-wins upserts keyed by (course, scope, target).
type AccessRule struct {
	ID        string      `db:"id" json:"id"`
	CourseID  string      `db:"course_id" json:"course_id"`
	Scope     AccessScope `db:"scope" json:"scope"`
	TargetID  string      `db:"target_id" json:"target_id"`
	Visible   bool        `db:"visible" json:"visible"`
	UpdatedBy string      `db:"updated_by" json:"updated_by"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}
