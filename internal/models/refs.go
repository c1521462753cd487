package models

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Human-facing identifier prefixes. These appear on receipts and in push
// notifications, so they stay stable for the lifetime of a record.
const (
	paymentRefPrefix  = "PAY-"
	orderNumberPrefix = "ORD-"
	saleNumberPrefix  = "SAL-"

	paymentRefRandLen = 10
	numberSuffixLen   = 4
)

const alphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randAlphanum(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// nothing sensible to fall back to.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = alphanum[int(b)%len(alphanum)]
	}
	return string(buf)
}

// NewPaymentReference generates the human-facing reference a customer quotes
// when reporting a mobile-money payment.
func NewPaymentReference() string {
	return paymentRefPrefix + randAlphanum(paymentRefRandLen)
}

// NewOrderNumber generates a unique order number. The timestamp component
// keeps numbers roughly sortable by submission time.
func NewOrderNumber(now time.Time) string {
	return orderNumberPrefix + now.UTC().Format("20060102150405") + "-" + randAlphanum(numberSuffixLen)
}

// NewSaleNumber generates a unique sale number using the same scheme as order
// numbers under a distinct prefix.
func NewSaleNumber(now time.Time) string {
	return saleNumberPrefix + now.UTC().Format("20060102150405") + "-" + randAlphanum(numberSuffixLen)
}
