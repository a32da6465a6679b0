package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tissuewatch/internal/domain"
)

func setupMockNotificationsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresNotificationsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresNotificationsRepo(db)
}

func notificationRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "device_id", "kind", "title", "message", "alert", "tamper",
		"priority", "is_read", "created_at",
	})
	for _, id := range ids {
		rows.AddRow(id, int64(1), "low", "⚠️ Low Tissue Alert",
			"[Room 101, Floor 1] Low tissue detected", "LOW", "false",
			80, false, time.Now())
	}
	return rows
}

func TestPostgresNotifications_Create(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(int64(7), "critical", "🚨 CRITICAL Alert", "boom", "LOW", "true", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_read", "created_at"}).
			AddRow(int64(42), false, time.Now()))

	n := &domain.Notification{
		DeviceID: 7,
		Kind:     "critical",
		Title:    "🚨 CRITICAL Alert",
		Message:  "boom",
		Alert:    "LOW",
		Tamper:   "true",
		Priority: 100,
	}
	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, int64(42), n.ID)
	assert.False(t, n.IsRead)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotifications_ListScopedByOwner(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM notifications n WHERE n\.device_id IN \(SELECT id FROM devices WHERE added_by = \$1\) ORDER BY n\.priority DESC, n\.created_at DESC`).
		WithArgs(int64(3)).
		WillReturnRows(notificationRows(1, 2))

	out, err := repo.List(context.Background(), OwnedBy(3))
	require.NoError(t, err)
	assert.Len(t, out, 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotifications_ListAdminUnscoped(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM notifications n WHERE TRUE ORDER BY`).
		WillReturnRows(notificationRows(1))

	out, err := repo.List(context.Background(), AllOwners())
	require.NoError(t, err)
	assert.Len(t, out, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotifications_MarkReadOutOfScopeIsNotFound(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE notifications`).
		WithArgs(int64(9), int64(3)).
		WillReturnError(sql.ErrNoRows)

	n, err := repo.MarkRead(context.Background(), 9, OwnedBy(3))
	assert.Nil(t, n)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotifications_DeleteOutOfScopeIsNotFound(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications`).
		WithArgs(int64(9), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 9, OwnedBy(3))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotifications_ClearAllReturnsCount(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 5))

	count, err := repo.ClearAll(context.Background(), OwnedBy(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotifications_UnreadCount(t *testing.T) {
	db, mock, repo := setupMockNotificationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications n WHERE n\.is_read = FALSE`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	count, err := repo.UnreadCount(context.Background(), OwnedBy(3))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	require.NoError(t, mock.ExpectationsWereMet())
}
