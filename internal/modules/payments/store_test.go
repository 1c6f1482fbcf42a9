package payments

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	return NewStore(db), mock
}

func TestStore_GetPaymentNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `payments`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetPayment(context.Background(), "pay_missing")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("err = %v, want ErrPaymentNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_CreateRefundDuplicateActiveKey(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `refunds`")).
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	now := time.Now()
	err := store.CreateRefund(context.Background(), &Refund{
		ID:               "ref_1",
		PaymentID:        "pay_1",
		TenantID:         "ten_1",
		Gateway:          "cardnet",
		Status:           RefundPending,
		AmountMinorUnits: 1000,
		Currency:         "USD",
		InitiatedBy:      "ops@example.com",
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if !errors.Is(err, ErrDuplicateActiveRefund) {
		t.Fatalf("err = %v, want ErrDuplicateActiveRefund", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_CreateRefundSetsActiveKey(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `refunds`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	now := time.Now()
	r := Refund{
		ID:               "ref_1",
		PaymentID:        "pay_1",
		TenantID:         "ten_1",
		Gateway:          "cardnet",
		Status:           RefundPending,
		AmountMinorUnits: 1000,
		Currency:         "USD",
		InitiatedBy:      "ops@example.com",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.CreateRefund(context.Background(), &r); err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	if r.ActiveKey == nil || *r.ActiveKey != "pay_1" {
		t.Errorf("ActiveKey = %v, want payment id", r.ActiveKey)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_BlockingRefundNone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `refunds`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := store.BlockingRefund(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("BlockingRefund: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
