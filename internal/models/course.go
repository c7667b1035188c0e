package models

import "time"

// Course is the top of the course structure tree.
type Course struct {
	ID              string    `db:"id" json:"id"`
	InstructorID    string    `db:"instructor_id" json:"instructor_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Category        string    `db:"category" json:"category"`
	Level           string    `db:"level" json:"level"`
	Language        string    `db:"language" json:"language"`
	Price           float64   `db:"price" json:"price"`
	Rating          float64   `db:"rating" json:"rating"`
	EnrollmentCount int       `db:"enrollment_count" json:"enrollment_count"`
	DurationHours   int       `db:"duration_hours" json:"duration_hours"`
	Featured        bool      `db:"featured" json:"featured"`
	HasCertificate  bool      `db:"has_certificate" json:"has_certificate"`
	Published       bool      `db:"published" json:"published"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CourseModule groups lessons and assessments within a course.
type CourseModule struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Lesson is a leaf of the course tree tracked for views.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	ModuleID  string    `db:"module_id" json:"module_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseStructureCounts carries the static denominators used by rate
// calculations (total lessons, total assignments per course).
type CourseStructureCounts struct {
	CourseID        string `db:"course_id" json:"course_id"`
	LessonCount     int    `db:"lesson_count" json:"lesson_count"`
	AssignmentCount int    `db:"assignment_count" json:"assignment_count"`
}

// Discussion is a community thread attached to a course.
type Discussion struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	AuthorID     string    `db:"author_id" json:"author_id"`
	Title        string    `db:"title" json:"title"`
	Body         string    `db:"body" json:"body"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
