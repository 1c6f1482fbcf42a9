package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paygrid.io/app/internal/gateway"
)

func newMockWebhookService(t *testing.T) (*WebhookService, sqlmock.Sqlmock) {
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

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWebhookService(db, quiet), mock
}

func refundRow(id, status string, activeKey any) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "payment_id", "order_id", "tenant_id", "gateway", "gateway_ref",
		"status", "amount_minor_units", "currency", "active_key", "initiated_by",
		"created_at", "updated_at",
	})
	now := time.Now()
	rows.AddRow(id, "pay_1", "ord_1", "ten_1", "cardnet", "re_1",
		status, int64(1000), "USD", activeKey, "ops@example.com", now, now)
	return rows
}

func ledgerCount(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count(*)"}).AddRow(n)
}

func TestWebhookService_DuplicateEventIsAcknowledged(t *testing.T) {
	svc, mock := newMockWebhookService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `provider_events`")).
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectCommit()

	ev := gateway.WebhookEvent{EventID: "evt_1", Type: "refund.completed", RefundRef: "re_1"}
	err := svc.Handle(context.Background(), "cardnet", ev, []byte(`{"id":"evt_1"}`))
	if err != nil {
		t.Fatalf("duplicate delivery must return nil so the provider gets 200, got %v", err)
	}
	// no refund lookup, no state transition: the expectations above are the
	// complete allowed sequence
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWebhookService_RefundCompletedFinalizesProcessingRow(t *testing.T) {
	svc, mock := newMockWebhookService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `provider_events`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `refunds`")).
		WillReturnRows(refundRow("ref_1", RefundProcessing, "pay_1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `refunds`")).
		WithArgs(nil, RefundCompleted, sqlmock.AnyArg(), "ref_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `ledger_entries`")).
		WillReturnRows(ledgerCount(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `ledger_entries`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `provider_events`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := gateway.WebhookEvent{EventID: "evt_2", Type: "refund.completed", RefundRef: "re_1"}
	if err := svc.Handle(context.Background(), "cardnet", ev, []byte(`{"id":"evt_2"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWebhookService_RefundCompletedIsIdempotent(t *testing.T) {
	svc, mock := newMockWebhookService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `provider_events`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `refunds`")).
		WillReturnRows(refundRow("ref_1", RefundCompleted, "pay_1"))
	// already completed: only the event bookkeeping runs, no refund update
	// and no second ledger entry
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `provider_events`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := gateway.WebhookEvent{EventID: "evt_3", Type: "refund.completed", RefundRef: "re_1"}
	if err := svc.Handle(context.Background(), "cardnet", ev, []byte(`{"id":"evt_3"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWebhookService_RefundFailedReleasesActiveKey(t *testing.T) {
	svc, mock := newMockWebhookService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `provider_events`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `refunds`")).
		WillReturnRows(refundRow("ref_1", RefundProcessing, "pay_1"))
	// active_key must go to NULL so the tenant can retry the refund
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `refunds`")).
		WithArgs(nil, "provider webhook: failed", RefundFailed, sqlmock.AnyArg(), "ref_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `ledger_entries`")).
		WillReturnRows(ledgerCount(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `ledger_entries`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `provider_events`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := gateway.WebhookEvent{EventID: "evt_4", Type: "refund.failed", RefundRef: "re_1"}
	if err := svc.Handle(context.Background(), "cardnet", ev, []byte(`{"id":"evt_4"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWebhookService_RefundFailedLedgerErrorPropagates(t *testing.T) {
	svc, mock := newMockWebhookService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `provider_events`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `refunds`")).
		WillReturnRows(refundRow("ref_1", RefundProcessing, "pay_1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `refunds`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `ledger_entries`")).
		WillReturnRows(ledgerCount(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `ledger_entries`")).
		WillReturnError(errors.New("ledger write failed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `provider_events`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	ev := gateway.WebhookEvent{EventID: "evt_6", Type: "refund.failed", RefundRef: "re_1"}
	err := svc.Handle(context.Background(), "cardnet", ev, []byte(`{"id":"evt_6"}`))
	if err == nil {
		t.Fatal("a failed audit-trail write must roll the event back so the provider retries")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWebhookService_UnknownEventTypePropagates(t *testing.T) {
	svc, mock := newMockWebhookService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `provider_events`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `provider_events`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	ev := gateway.WebhookEvent{EventID: "evt_5", Type: "invoice.created"}
	err := svc.Handle(context.Background(), "cardnet", ev, []byte(`{"id":"evt_5"}`))
	if err == nil {
		t.Fatal("unknown event types must error so the handler responds 500")
	}
	var me *driver.MySQLError
	if errors.As(err, &me) {
		t.Fatalf("expected an apply error, got a database error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
