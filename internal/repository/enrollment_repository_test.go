package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestListStudentsByCourse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	enrolledAt := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "full_name", "email", "enrolled_at"}).
		AddRow("s1", "Ada Lovelace", "ada@example.com", enrolledAt).
		AddRow("s2", "Grace Hopper", "grace@example.com", enrolledAt)

	mock.ExpectQuery(`SELECT e.student_id, u.full_name, u.email, e.enrolled_at`).
		WithArgs("c1").
		WillReturnRows(rows)

	students, err := repo.ListStudentsByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "s1", students[0].StudentID)
	assert.Equal(t, "Ada Lovelace", students[0].FullName)
	assert.Equal(t, enrolledAt, students[0].EnrolledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveStudentCounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"course_id", "students"}).
		AddRow("c1", 7).
		AddRow("c2", 3)

	mock.ExpectQuery(`SELECT course_id, COUNT\(DISTINCT student_id\) AS students`).
		WithArgs("c1", "c2", since).
		WillReturnRows(rows)

	counts, err := repo.ActiveStudentCounts(context.Background(), []string{"c1", "c2"}, since)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c1": 7, "c2": 3}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveStudentCountsEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	counts, err := repo.ActiveStudentCounts(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, counts)
}
