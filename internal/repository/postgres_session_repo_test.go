package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/salonhub/internal/model"
)

func TestPostgresSessionRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	s := &model.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		UserType:  model.UserTypeProvider,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, s.UserID, "provider", s.ExpiresAt, s.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresSessionRepo(db)
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSessionRepo_FindByID_ReturnsUserType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "user_type", "expires_at", "created_at"}).
		AddRow("sess-1", "user-1", "customer", now.Add(time.Hour), now)
	mock.ExpectQuery("FROM sessions").WithArgs("sess-1").WillReturnRows(rows)

	repo := NewPostgresSessionRepo(db)
	s, err := repo.FindByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if s == nil {
		t.Fatal("expected session, got nil")
	}
	if s.UserType != model.UserTypeCustomer {
		t.Errorf("UserType = %q, want customer", s.UserType)
	}
}

func TestPostgresSessionRepo_FindByID_ExpiredReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	// 期限切れはWHERE句で除外されるため行が返らない
	mock.ExpectQuery("expires_at > now\\(\\)").WithArgs("sess-old").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "user_type", "expires_at", "created_at"}))

	repo := NewPostgresSessionRepo(db)
	s, err := repo.FindByID(context.Background(), "sess-old")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestPostgresSessionRepo_DeleteByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE id = \\$1").WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresSessionRepo(db)
	if err := repo.DeleteByID(context.Background(), "sess-1"); err != nil {
		t.Fatalf("DeleteByID returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSessionRepo_DeleteExpired_ReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at <= now\\(\\)").
		WillReturnResult(sqlmock.NewResult(0, 7))

	repo := NewPostgresSessionRepo(db)
	n, err := repo.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpired returned error: %v", err)
	}
	if n != 7 {
		t.Errorf("deleted = %d, want 7", n)
	}
}
