package dto

import "time"

// AdminDashboardFilter scopes the admin dashboard aggregates.
type AdminDashboardFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	CategoryIDs   []string
	InstructorIDs []string
}

// CategoryCount aggregates courses and enrollments per category.
type CategoryCount struct {
	Category    string `db:"category" json:"category"`
	Courses     int    `db:"courses" json:"courses"`
	Enrollments int    `db:"enrollments" json:"enrollments"`
}

// InstructorCount aggregates per-instructor reach.
type InstructorCount struct {
	InstructorID string `db:"instructor_id" json:"instructor_id"`
	FullName     string `db:"full_name" json:"full_name"`
	Courses      int    `db:"courses" json:"courses"`
	Enrollments  int    `db:"enrollments" json:"enrollments"`
}

// TrendPoint is one bucket of a date-keyed counter series.
type TrendPoint struct {
	Date  string `db:"date" json:"date"`
	Count int    `db:"count" json:"count"`
}

// CourseCount ranks a course by enrollment volume.
type CourseCount struct {
	CourseID    string `db:"course_id" json:"course_id"`
	Title       string `db:"title" json:"title"`
	Enrollments int    `db:"enrollments" json:"enrollments"`
}

// AdminDashboardResponse is the admin-only aggregate dashboard payload.
type AdminDashboardResponse struct {
	TotalCourses     int               `json:"total_courses"`
	TotalEnrollments int               `json:"total_enrollments"`
	TotalStudents    int               `json:"total_students"`
	TotalRevenue     float64           `json:"total_revenue"`
	CompletionRate   int               `json:"completion_rate"`
	TopCategories    []CategoryCount   `json:"top_categories"`
	TopInstructors   []InstructorCount `json:"top_instructors"`
	EnrollmentTrend  []TrendPoint      `json:"enrollment_trend"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// AdminAnalyticsRequest binds the timeframe analytics query parameters.
type AdminAnalyticsRequest struct {
	Timeframe         string `form:"timeframe" validate:"omitempty,oneof=day week month year all"`
	CourseID          string `form:"course_id"`
	InstructorID      string `form:"instructor_id"`
	Category          string `form:"category"`
	IncludeOverview   bool   `form:"include_overview"`
	IncludeTrend      bool   `form:"include_trend"`
	IncludeTopCourses bool   `form:"include_top_courses"`
}

// AnalyticsOverview is the optional headline section.
type AnalyticsOverview struct {
	Courses     int     `db:"courses" json:"courses"`
	Enrollments int     `db:"enrollments" json:"enrollments"`
	Students    int     `db:"students" json:"students"`
	Revenue     float64 `db:"revenue" json:"revenue"`
}

// AdminAnalyticsResponse carries the togglable analytics sections.
type AdminAnalyticsResponse struct {
	Timeframe       string             `json:"timeframe"`
	Overview        *AnalyticsOverview `json:"overview,omitempty"`
	EnrollmentTrend []TrendPoint       `json:"enrollment_trend,omitempty"`
	TopCourses      []CourseCount      `json:"top_courses,omitempty"`
	GeneratedAt     time.Time          `json:"generated_at"`
}
