package dto

import "time"

// TimeSeriesPoint is one calendar day of engagement activity.
type TimeSeriesPoint struct {
	Date        string `json:"date"`
	Enrollments int    `json:"enrollments"`
	LessonViews int    `json:"lesson_views"`
	Submissions int    `json:"submissions"`
	Completion  int    `json:"completion"`
}

// HeatmapCell is one day-of-week × hour-of-day bucket. The grid always has
// exactly 7×24 cells.
type HeatmapCell struct {
	Day   int `json:"day"`
	Hour  int `json:"hour"`
	Value int `json:"value"`
}

// CourseEngagementStats summarises one course inside the engagement report.
type CourseEngagementStats struct {
	CourseID       string  `json:"course_id"`
	Title          string  `json:"title"`
	ActiveStudents int     `json:"active_students"`
	CompletionRate int     `json:"completion_rate"`
	AverageScore   float64 `json:"average_score"`
}

// EngagementReport is the 30-day instructor engagement overview.
type EngagementReport struct {
	TotalCourses   int                     `json:"total_courses"`
	ActiveStudents int                     `json:"active_students"`
	EngagementRate int                     `json:"engagement_rate"`
	TimeSeries     []TimeSeriesPoint       `json:"time_series"`
	Heatmap        []HeatmapCell           `json:"heatmap"`
	Courses        []CourseEngagementStats `json:"courses"`
	GeneratedAt    time.Time               `json:"generated_at"`
}
