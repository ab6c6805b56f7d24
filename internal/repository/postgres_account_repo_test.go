package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/hitoshi/salonhub/internal/model"
)

func newTestAccount() (*model.Profile, *model.Credential) {
	now := time.Now()
	p := &model.Profile{
		ID:        "11111111-1111-1111-1111-111111111111",
		Email:     "customer@example.com",
		UserType:  model.UserTypeCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c := &model.Credential{UserID: p.ID, PasswordHash: "$2a$10$hash"}
	return p, c
}

func TestPostgresAccountRepo_CreateAccount_InsertsAllRowsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p, c := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO credentials").WithArgs(p.ID, c.PasswordHash).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs(p.ID, "customer").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresAccountRepo(db)
	if err := repo.CreateAccount(context.Background(), p, c, model.RoleCustomer); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAccountRepo_CreateAccount_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p, c := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO profiles").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	repo := NewPostgresAccountRepo(db)
	err = repo.CreateAccount(context.Background(), p, c, model.RoleCustomer)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("error = %v, want ErrDuplicateEmail", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAccountRepo_CreateAccount_RollsBackOnCredentialFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p, c := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO credentials").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewPostgresAccountRepo(db)
	if err := repo.CreateAccount(context.Background(), p, c, model.RoleCustomer); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAccountRepo_FindCredentialByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "avatar_url", "user_type", "created_at", "updated_at", "password_hash"}).
		AddRow("user-1", "provider@example.com", nil, nil, "provider", now, now, "$2a$10$abc")
	mock.ExpectQuery("FROM profiles p").WithArgs("Provider@Example.com").WillReturnRows(rows)

	repo := NewPostgresAccountRepo(db)
	p, c, err := repo.FindCredentialByEmail(context.Background(), "Provider@Example.com")
	if err != nil {
		t.Fatalf("FindCredentialByEmail returned error: %v", err)
	}
	if p.ID != "user-1" || c.UserID != "user-1" {
		t.Errorf("profile/credential user mismatch: %q / %q", p.ID, c.UserID)
	}
	if c.PasswordHash != "$2a$10$abc" {
		t.Errorf("PasswordHash = %q", c.PasswordHash)
	}
}

func TestPostgresAccountRepo_FindCredentialByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM profiles p").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresAccountRepo(db)
	p, c, err := repo.FindCredentialByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p != nil || c != nil {
		t.Errorf("expected nil results, got %+v %+v", p, c)
	}
}

func TestPostgresAccountRepo_ListRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"role"}).AddRow("admin").AddRow("provider")
	mock.ExpectQuery("SELECT role FROM user_roles").WithArgs("user-1").WillReturnRows(rows)

	repo := NewPostgresAccountRepo(db)
	roles, err := repo.ListRoles(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListRoles returned error: %v", err)
	}
	if len(roles) != 2 || roles[0] != model.RoleAdmin || roles[1] != model.RoleProvider {
		t.Errorf("roles = %v, want [admin provider]", roles)
	}
}
