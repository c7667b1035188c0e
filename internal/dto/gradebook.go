package dto

import (
	"time"

	"github.com/openlearn/lms-api/internal/models"
)

// AssessmentItemReport is one graded or pending item inside a student report.
type AssessmentItemReport struct {
	ID          string                `json:"id"`
	Kind        models.AssessmentKind `json:"kind"`
	Title       string                `json:"title"`
	Score       float64               `json:"score"`
	MaxScore    float64               `json:"max_score"`
	Percentage  int                   `json:"percentage"`
	LetterGrade string                `json:"letter_grade"`
	Status      string                `json:"status"`
	SubmittedAt time.Time             `json:"submitted_at"`
}

// StudentGradeReport aggregates one student's standing in a course.
type StudentGradeReport struct {
	StudentID           string                 `json:"student_id"`
	FullName            string                 `json:"full_name"`
	Email               string                 `json:"email"`
	Projects            []AssessmentItemReport `json:"projects"`
	Quizzes             []AssessmentItemReport `json:"quizzes"`
	Assignments         []AssessmentItemReport `json:"assignments"`
	TotalPoints         float64                `json:"total_points"`
	MaxPoints           float64                `json:"max_points"`
	Percentage          int                    `json:"percentage"`
	LetterGrade         string                 `json:"letter_grade"`
	GPA                 float64                `json:"gpa"`
	GradedProjects      int                    `json:"graded_projects"`
	CompletedQuizzes    int                    `json:"completed_quizzes"`
	GradedAssignments   int                    `json:"graded_assignments"`
	PendingSubmissions  int                    `json:"pending_submissions"`
	Trend               string                 `json:"trend"`
}

// CategorySummary is the class-wide summary for one assessment category.
// Weight is a fixed display weight; the overall grade itself is an
// unweighted points summation.
type CategorySummary struct {
	Category     string `json:"category"`
	Weight       int    `json:"weight"`
	AverageScore int    `json:"average_score"`
}

// StudentRanking names a student inside the top-performers list.
type StudentRanking struct {
	StudentID   string `json:"student_id"`
	FullName    string `json:"full_name"`
	Percentage  int    `json:"percentage"`
	LetterGrade string `json:"letter_grade"`
}

// StrugglingStudent names a student below the attention threshold.
type StrugglingStudent struct {
	StudentID   string `json:"student_id"`
	FullName    string `json:"full_name"`
	Percentage  int    `json:"percentage"`
	IssuesCount int    `json:"issues_count"`
}

// RecentActivityItem is a recently graded project mark or completed quiz
// attempt surfaced in the class summary.
type RecentActivityItem struct {
	StudentID   string                `json:"student_id"`
	StudentName string                `json:"student_name"`
	Kind        models.AssessmentKind `json:"kind"`
	Title       string                `json:"title"`
	Score       float64               `json:"score"`
	MaxScore    float64               `json:"max_score"`
	Timestamp   time.Time             `json:"timestamp"`
}

// ClassSummary carries class-level aggregates for a course gradebook.
type ClassSummary struct {
	StudentCount       int                  `json:"student_count"`
	AverageGrade       int                  `json:"average_grade"`
	GradeDistribution  map[string]int       `json:"grade_distribution"`
	Categories         []CategorySummary    `json:"categories"`
	TopPerformers      []StudentRanking     `json:"top_performers"`
	StrugglingStudents []StrugglingStudent  `json:"struggling_students"`
	RecentActivity     []RecentActivityItem `json:"recent_activity"`
}

// GradebookResponse is the full per-course grade report.
type GradebookResponse struct {
	CourseID    string               `json:"course_id"`
	CourseTitle string               `json:"course_title"`
	Students    []StudentGradeReport `json:"students"`
	Summary     ClassSummary         `json:"summary"`
	GeneratedAt time.Time            `json:"generated_at"`
}
