package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

func TestMarkOrderPaidCreditsAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewBillingRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").
		WithArgs("o-1", "paid", "pay_1", sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))
	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("u-1", "pro", int64(5000), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"plan_id", "tokens", "updated_at"}).AddRow("pro", int64(5200), now))
	mock.ExpectCommit()

	account, err := repo.MarkOrderPaid(context.Background(), "o-1", "pay_1", domain.Plan{ID: "pro", Tokens: 5000})
	if err != nil {
		t.Fatalf("MarkOrderPaid() error = %v", err)
	}
	if account.Tokens != 5200 || account.PlanID != "pro" || account.UserID != "u-1" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkOrderPaidRejectsAlreadyPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewBillingRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").
		WithArgs("o-1", "paid", "pay_1", sqlmock.AnyArg(), "pending").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err = repo.MarkOrderPaid(context.Background(), "o-1", "pay_1", domain.Plan{ID: "pro", Tokens: 5000})
	if !domain.IsKind(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetAccountDefaultsToFreePlan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM accounts").
		WithArgs("u-2").
		WillReturnError(sql.ErrNoRows)

	account, err := NewBillingRepository(db).GetAccount(context.Background(), "u-2")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if account.PlanID != "free" || account.Tokens != 0 {
		t.Fatalf("unexpected default account: %+v", account)
	}
}

func TestGetOrderByGatewayIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM orders").
		WithArgs("u-1", "order_x").
		WillReturnError(sql.ErrNoRows)

	_, err = NewBillingRepository(db).GetOrderByGatewayID(context.Background(), "u-1", "order_x")
	if !domain.IsKind(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
