package models

import "time"

// AssessmentKind discriminates the assessment record union. Every consumer
// must switch exhaustively over the three variants.
type AssessmentKind string

const (
	AssessmentProject    AssessmentKind = "project"
	AssessmentQuiz       AssessmentKind = "quiz"
	AssessmentAssignment AssessmentKind = "assignment"
)

// Per-variant status vocabularies. Projects carry marks that become visible
// once APPROVED; quiz attempts only count when COMPLETED; assignment
// submissions move from SUBMITTED to GRADED.
const (
	ProjectStatusApproved  = "APPROVED"
	ProjectStatusPending   = "PENDING"
	QuizStatusCompleted    = "COMPLETED"
	QuizStatusInProgress   = "IN_PROGRESS"
	AssignmentStatusGraded = "GRADED"
	AssignmentStatusSent   = "SUBMITTED"
)

// AssessmentRecord is the normalized union of project marks, quiz attempts
// and assignment submissions. MaxScore is resolved from the variant-specific
// source column (points_value, max_score, points) at query time; Status keeps
// the variant's own vocabulary.
type AssessmentRecord struct {
	ID          string         `db:"id" json:"id"`
	Kind        AssessmentKind `db:"kind" json:"kind"`
	StudentID   string         `db:"student_id" json:"student_id"`
	CourseID    string         `db:"course_id" json:"course_id"`
	ParentID    string         `db:"parent_id" json:"parent_id"`
	ParentTitle string         `db:"parent_title" json:"parent_title"`
	Score       float64        `db:"score" json:"score"`
	MaxScore    float64        `db:"max_score" json:"max_score"`
	Status      string         `db:"status" json:"status"`
	SubmittedAt time.Time      `db:"submitted_at" json:"submitted_at"`
}

// Graded reports whether the record carries a released grade, per the
// variant's own status vocabulary.
func (r AssessmentRecord) Graded() bool {
	switch r.Kind {
	case AssessmentProject:
		return r.Status == ProjectStatusApproved
	case AssessmentQuiz:
		return r.Status == QuizStatusCompleted
	case AssessmentAssignment:
		return r.Status == AssignmentStatusGraded
	default:
		return false
	}
}

// AssignmentScore is a 30-day-window assignment submission grade used by the
// engagement aggregator. Grade is nil while the submission is ungraded.
type AssignmentScore struct {
	CourseID    string    `db:"course_id" json:"course_id"`
	Grade       *float64  `db:"grade" json:"grade,omitempty"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}
