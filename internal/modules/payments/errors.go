package payments

import "errors"

var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentNotPaid        = errors.New("payment not paid")
	ErrRefundNotFound        = errors.New("refund not found")
	ErrDuplicateActiveRefund = errors.New("a blocking refund already exists for this payment")
)
