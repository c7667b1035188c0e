package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// SearchRepository runs the per-entity-type queries behind unified search.
// Fetch and count share the same WHERE construction per type so reported
// totals always agree with the filter predicates.
type SearchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository instantiates the repository.
func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// SearchCourses returns matching courses shaped as search results.
func (r *SearchRepository) SearchCourses(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	where, args := r.courseWhere(f)
	var builder strings.Builder
	builder.WriteString(`SELECT c.id, 'course' AS result_type, c.title, LEFT(c.description, 200) AS snippet,
        c.instructor_id AS owner_id, u.full_name AS owner_name, c.enrollment_count AS popularity,
        c.rating, c.price, c.created_at
        FROM courses c
        JOIN users u ON u.id = c.instructor_id`)
	builder.WriteString(where)
	r.appendCourseOrder(&builder, f, &args)
	r.appendPage(&builder, f, &args)

	var results []models.SearchResult
	if err := r.db.SelectContext(ctx, &results, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	return results, nil
}

// CountCourses counts courses matching the same predicates as SearchCourses.
func (r *SearchRepository) CountCourses(ctx context.Context, f models.SearchFilter) (int, error) {
	where, args := r.courseWhere(f)
	query := "SELECT COUNT(*) FROM courses c JOIN users u ON u.id = c.instructor_id" + where
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// SearchLessons returns matching lessons shaped as search results.
func (r *SearchRepository) SearchLessons(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	where, args := r.lessonWhere(f)
	var builder strings.Builder
	builder.WriteString(`SELECT l.id, 'lesson' AS result_type, l.title, LEFT(l.content, 200) AS snippet,
        c.instructor_id AS owner_id, c.title AS owner_name, 0 AS popularity,
        0 AS rating, 0 AS price, l.created_at
        FROM lessons l
        JOIN course_modules m ON m.id = l.module_id
        JOIN courses c ON c.id = m.course_id`)
	builder.WriteString(where)
	r.appendBasicOrder(&builder, "l", "l.title || ' ' || l.content", f, &args)
	r.appendPage(&builder, f, &args)

	var results []models.SearchResult
	if err := r.db.SelectContext(ctx, &results, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search lessons: %w", err)
	}
	return results, nil
}

// CountLessons counts lessons matching the same predicates as SearchLessons.
func (r *SearchRepository) CountLessons(ctx context.Context, f models.SearchFilter) (int, error) {
	where, args := r.lessonWhere(f)
	query := `SELECT COUNT(*) FROM lessons l
        JOIN course_modules m ON m.id = l.module_id
        JOIN courses c ON c.id = m.course_id` + where
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}

// SearchModules returns matching course modules shaped as search results.
func (r *SearchRepository) SearchModules(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	where, args := r.moduleWhere(f)
	var builder strings.Builder
	builder.WriteString(`SELECT m.id, 'module' AS result_type, m.title, c.title AS snippet,
        c.instructor_id AS owner_id, c.title AS owner_name, 0 AS popularity,
        0 AS rating, 0 AS price, m.created_at
        FROM course_modules m
        JOIN courses c ON c.id = m.course_id`)
	builder.WriteString(where)
	r.appendBasicOrder(&builder, "m", "m.title", f, &args)
	r.appendPage(&builder, f, &args)

	var results []models.SearchResult
	if err := r.db.SelectContext(ctx, &results, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search modules: %w", err)
	}
	return results, nil
}

// CountModules counts modules matching the same predicates as SearchModules.
func (r *SearchRepository) CountModules(ctx context.Context, f models.SearchFilter) (int, error) {
	where, args := r.moduleWhere(f)
	query := "SELECT COUNT(*) FROM course_modules m JOIN courses c ON c.id = m.course_id" + where
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count modules: %w", err)
	}
	return count, nil
}

// SearchInstructors returns matching instructors shaped as search results.
// Popularity is the published-course count. Users who opted out of search
// via privacy settings are excluded.
func (r *SearchRepository) SearchInstructors(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	where, args := r.instructorWhere(f)
	var builder strings.Builder
	builder.WriteString(`SELECT u.id, 'instructor' AS result_type, u.full_name AS title, '' AS snippet,
        u.id AS owner_id, u.full_name AS owner_name,
        (SELECT COUNT(*) FROM courses c WHERE c.instructor_id = u.id AND c.published = TRUE) AS popularity,
        0 AS rating, 0 AS price, u.created_at
        FROM users u
        LEFT JOIN privacy_settings ps ON ps.user_id = u.id`)
	builder.WriteString(where)
	r.appendBasicOrder(&builder, "u", "u.full_name", f, &args)
	r.appendPage(&builder, f, &args)

	var results []models.SearchResult
	if err := r.db.SelectContext(ctx, &results, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search instructors: %w", err)
	}
	return results, nil
}

// CountInstructors counts instructors matching the same predicates.
func (r *SearchRepository) CountInstructors(ctx context.Context, f models.SearchFilter) (int, error) {
	where, args := r.instructorWhere(f)
	query := "SELECT COUNT(*) FROM users u LEFT JOIN privacy_settings ps ON ps.user_id = u.id" + where
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count instructors: %w", err)
	}
	return count, nil
}

// SearchDiscussions returns matching discussions shaped as search results.
func (r *SearchRepository) SearchDiscussions(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	where, args := r.discussionWhere(f)
	var builder strings.Builder
	builder.WriteString(`SELECT d.id, 'discussion' AS result_type, d.title, LEFT(d.body, 200) AS snippet,
        d.author_id AS owner_id, u.full_name AS owner_name, d.comment_count AS popularity,
        0 AS rating, 0 AS price, d.created_at
        FROM discussions d
        JOIN courses c ON c.id = d.course_id
        JOIN users u ON u.id = d.author_id`)
	builder.WriteString(where)
	r.appendDiscussionOrder(&builder, f, &args)
	r.appendPage(&builder, f, &args)

	var results []models.SearchResult
	if err := r.db.SelectContext(ctx, &results, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search discussions: %w", err)
	}
	return results, nil
}

// CountDiscussions counts discussions matching the same predicates.
func (r *SearchRepository) CountDiscussions(ctx context.Context, f models.SearchFilter) (int, error) {
	where, args := r.discussionWhere(f)
	query := `SELECT COUNT(*) FROM discussions d
        JOIN courses c ON c.id = d.course_id
        JOIN users u ON u.id = d.author_id` + where
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count discussions: %w", err)
	}
	return count, nil
}

func (r *SearchRepository) courseWhere(f models.SearchFilter) (string, []interface{}) {
	var builder strings.Builder
	var args []interface{}

	args = append(args, likePattern(f.Query))
	builder.WriteString(fmt.Sprintf(" WHERE (c.title ILIKE $%d OR c.description ILIKE $%d)", len(args), len(args)))

	if !f.IncludePrivate {
		builder.WriteString(" AND c.published = TRUE")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		builder.WriteString(fmt.Sprintf(" AND c.category = $%d", len(args)))
	}
	if f.Level != "" {
		args = append(args, f.Level)
		builder.WriteString(fmt.Sprintf(" AND c.level = $%d", len(args)))
	}
	if f.Language != "" {
		args = append(args, f.Language)
		builder.WriteString(fmt.Sprintf(" AND c.language = $%d", len(args)))
	}
	if f.MinRating > 0 {
		args = append(args, f.MinRating)
		builder.WriteString(fmt.Sprintf(" AND c.rating >= $%d", len(args)))
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		builder.WriteString(fmt.Sprintf(" AND c.price <= $%d", len(args)))
	}
	if f.FreeOnly {
		builder.WriteString(" AND c.price = 0")
	}
	if f.Featured {
		builder.WriteString(" AND c.featured = TRUE")
	}
	if f.Certificate {
		builder.WriteString(" AND c.has_certificate = TRUE")
	}
	if f.MaxDuration > 0 {
		args = append(args, f.MaxDuration)
		builder.WriteString(fmt.Sprintf(" AND c.duration_hours <= $%d", len(args)))
	}

	return builder.String(), args
}

func (r *SearchRepository) lessonWhere(f models.SearchFilter) (string, []interface{}) {
	var builder strings.Builder
	var args []interface{}

	args = append(args, likePattern(f.Query))
	builder.WriteString(fmt.Sprintf(" WHERE (l.title ILIKE $%d OR l.content ILIKE $%d)", len(args), len(args)))
	if !f.IncludePrivate {
		builder.WriteString(" AND c.published = TRUE")
	}
	return builder.String(), args
}

func (r *SearchRepository) moduleWhere(f models.SearchFilter) (string, []interface{}) {
	var builder strings.Builder
	var args []interface{}

	args = append(args, likePattern(f.Query))
	builder.WriteString(fmt.Sprintf(" WHERE m.title ILIKE $%d", len(args)))
	if !f.IncludePrivate {
		builder.WriteString(" AND c.published = TRUE")
	}
	return builder.String(), args
}

func (r *SearchRepository) instructorWhere(f models.SearchFilter) (string, []interface{}) {
	var builder strings.Builder
	var args []interface{}

	args = append(args, likePattern(f.Query))
	builder.WriteString(fmt.Sprintf(" WHERE u.full_name ILIKE $%d", len(args)))
	builder.WriteString(" AND u.role = 'INSTRUCTOR' AND u.active = TRUE")
	builder.WriteString(" AND COALESCE(ps.searchable, TRUE)")
	return builder.String(), args
}

func (r *SearchRepository) discussionWhere(f models.SearchFilter) (string, []interface{}) {
	var builder strings.Builder
	var args []interface{}

	args = append(args, likePattern(f.Query))
	builder.WriteString(fmt.Sprintf(" WHERE (d.title ILIKE $%d OR d.body ILIKE $%d)", len(args), len(args)))
	if !f.IncludePrivate {
		builder.WriteString(" AND c.published = TRUE")
	}
	return builder.String(), args
}

func (r *SearchRepository) appendCourseOrder(builder *strings.Builder, f models.SearchFilter, args *[]interface{}) {
	switch f.Sort {
	case "newest":
		builder.WriteString(" ORDER BY c.created_at DESC")
	case "oldest":
		builder.WriteString(" ORDER BY c.created_at ASC")
	case "popular":
		builder.WriteString(" ORDER BY c.enrollment_count DESC")
	case "highestRated":
		builder.WriteString(" ORDER BY c.rating DESC")
	case "priceAsc":
		builder.WriteString(" ORDER BY c.price ASC")
	case "priceDesc":
		builder.WriteString(" ORDER BY c.price DESC")
	default:
		*args = append(*args, f.Query)
		builder.WriteString(fmt.Sprintf(
			" ORDER BY ts_rank(to_tsvector('english', c.title || ' ' || c.description), plainto_tsquery('english', $%d)) DESC",
			len(*args)))
	}
}

// appendBasicOrder handles types without rating/price/popularity columns;
// those sort keys fall back to recency.
func (r *SearchRepository) appendBasicOrder(builder *strings.Builder, alias, relevanceExpr string, f models.SearchFilter, args *[]interface{}) {
	switch f.Sort {
	case "oldest":
		fmt.Fprintf(builder, " ORDER BY %s.created_at ASC", alias)
	case "newest", "popular", "highestRated", "priceAsc", "priceDesc":
		fmt.Fprintf(builder, " ORDER BY %s.created_at DESC", alias)
	default:
		*args = append(*args, f.Query)
		fmt.Fprintf(builder,
			" ORDER BY ts_rank(to_tsvector('english', %s), plainto_tsquery('english', $%d)) DESC",
			relevanceExpr, len(*args))
	}
}

func (r *SearchRepository) appendDiscussionOrder(builder *strings.Builder, f models.SearchFilter, args *[]interface{}) {
	switch f.Sort {
	case "newest":
		builder.WriteString(" ORDER BY d.created_at DESC")
	case "oldest":
		builder.WriteString(" ORDER BY d.created_at ASC")
	case "popular":
		builder.WriteString(" ORDER BY d.comment_count DESC")
	case "highestRated", "priceAsc", "priceDesc":
		builder.WriteString(" ORDER BY d.created_at DESC")
	default:
		*args = append(*args, f.Query)
		builder.WriteString(fmt.Sprintf(
			" ORDER BY ts_rank(to_tsvector('english', d.title || ' ' || d.body), plainto_tsquery('english', $%d)) DESC",
			len(*args)))
	}
}

func (r *SearchRepository) appendPage(builder *strings.Builder, f models.SearchFilter, args *[]interface{}) {
	*args = append(*args, f.Limit)
	fmt.Fprintf(builder, " LIMIT $%d", len(*args))
	*args = append(*args, f.Offset)
	fmt.Fprintf(builder, " OFFSET $%d", len(*args))
}

func likePattern(query string) string {
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(query)
	return "%" + escaped + "%"
}
