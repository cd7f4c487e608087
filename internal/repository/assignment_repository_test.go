package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-monitor-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var assignmentRowColumns = []string{"id", "user_id", "name", "role", "category", "can_add", "can_edit", "can_delete", "assigned_by", "assigned_at"}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO personnel_assignments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.PersonnelAssignment{UserID: "S@X", Name: "Sam", Role: models.RoleStaff, Category: models.CategoryStaff, CanAdd: true, AssignedBy: "a@x", AssignedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), assignment))
	require.NotEmpty(t, assignment.ID)
	require.Equal(t, "s@x", assignment.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO personnel_assignments")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.PersonnelAssignment{UserID: "s@x", Category: models.CategoryStaff})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestAssignmentRepositoryFind(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	rows := sqlmock.NewRows(assignmentRowColumns).
		AddRow("as-1", "s@x", "Sam", "STAFF", "staff", true, true, false, "a@x", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM personnel_assignments WHERE user_id = $1 AND category = $2")).
		WithArgs("s@x", models.CategoryStaff).
		WillReturnRows(rows)

	found, err := repo.FindByUserAndCategory(context.Background(), " S@x", models.CategoryStaff)
	require.NoError(t, err)
	require.Equal(t, "as-1", found.ID)
	require.True(t, found.Permissions().CanEdit)
	require.False(t, found.Permissions().CanDelete)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	id := uuid.NewString()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM personnel_assignments")).
		WithArgs(id, models.CategoryStaff).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), models.CategoryStaff, id))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM personnel_assignments")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), models.CategoryStaff, uuid.NewString()), ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM personnel_assignments")).
		WillReturnError(errors.New("connection reset"))
	require.Error(t, repo.Delete(context.Background(), models.CategoryStaff, id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteMalformedID(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	require.ErrorIs(t, repo.Delete(context.Background(), models.CategoryStaff, "not-a-uuid"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
