package metrics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/frontdesk/internal/checkout/domain"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/smallbiznis/frontdesk/pkg/db"
)

const (
	ResultOK               = "ok"
	ResultValidation       = "validation"
	ResultNotReady         = "not_ready"
	ResultNotFound         = "not_found"
	ResultForbidden        = "forbidden"
	ResultConflict         = "conflict"
	ResultDeadlineExceeded = "deadline_exceeded"
	ResultError            = "error"
)

// ClassifyResult maps an operation error to a low-cardinality result label.
func ClassifyResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ResultDeadlineExceeded
	case errors.Is(err, authorization.ErrForbidden):
		return ResultForbidden
	case errors.Is(err, checkoutdomain.ErrNotReady):
		return ResultNotReady
	case isValidation(err):
		return ResultValidation
	case errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, bookingdomain.ErrInvoiceNotFound),
		errors.Is(err, roomdomain.ErrNotFound):
		return ResultNotFound
	case isConflict(err):
		return ResultConflict
	default:
		return ResultError
	}
}

func isValidation(err error) bool {
	return errors.Is(err, pricingdomain.ErrInvalidPricing) ||
		errors.Is(err, pricingdomain.ErrInvalidNights) ||
		errors.Is(err, pricingdomain.ErrInvalidRate) ||
		errors.Is(err, pricingdomain.ErrInvalidDuration) ||
		errors.Is(err, pricingdomain.ErrAmountOverflow) ||
		errors.Is(err, bookingdomain.ErrInvalidBookingID) ||
		errors.Is(err, bookingdomain.ErrInvalidMode) ||
		errors.Is(err, bookingdomain.ErrInvalidNights) ||
		errors.Is(err, bookingdomain.ErrInvalidRate) ||
		errors.Is(err, bookingdomain.ErrInvalidItemCode) ||
		errors.Is(err, bookingdomain.ErrInvalidQuantity) ||
		errors.Is(err, bookingdomain.ErrInvalidUnitPrice) ||
		errors.Is(err, bookingdomain.ErrOvernightOnly) ||
		errors.Is(err, roomdomain.ErrInvalidRoomID) ||
		errors.Is(err, roomdomain.ErrInvalidRoomType)
}

func isConflict(err error) bool {
	if db.IsDuplicateKeyErr(err) ||
		errors.Is(err, roomdomain.ErrStatusConflict) ||
		errors.Is(err, roomdomain.ErrRoomNotAvailable) ||
		errors.Is(err, bookingdomain.ErrModeMismatch) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "55P03":
			return true
		}
	}
	return false
}
