package models

import "time"

// LessonViewEvent marks that a student viewed a lesson. Multiplicity per
// (student, lesson) collapses to viewed-or-not for completion rates, but the
// timestamp feeds the time series and heatmap buckets.
type LessonViewEvent struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	LessonID   string    `db:"lesson_id" json:"lesson_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	LastViewed time.Time `db:"last_viewed" json:"last_viewed"`
}

// SubmissionEvent is an assignment submission timestamp within the
// engagement window.
type SubmissionEvent struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// EnrollmentEvent is an enrollment creation timestamp within the
// engagement window.
type EnrollmentEvent struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// LessonViewCount aggregates distinct viewed lessons per course.
type LessonViewCount struct {
	CourseID      string `db:"course_id" json:"course_id"`
	ViewedLessons int    `db:"viewed_lessons" json:"viewed_lessons"`
}

// CourseStudentCount aggregates distinct students per course.
type CourseStudentCount struct {
	CourseID string `db:"course_id" json:"course_id"`
	Students int    `db:"students" json:"students"`
}
