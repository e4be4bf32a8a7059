// Package ledger persists settled orders. Two drivers: PostgreSQL for
// production and an in-memory store for tests and local runs. Both enforce
// the same invariants: orders are validated before write, writes are
// idempotent on order id, and recorded orders are never mutated.
package ledger

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/falsenine/storefront/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateOrder checks an order against the ledger's integrity rules.
// Rejections are EINVALID; nothing partial is ever written.
func ValidateOrder(order *domain.Order) error {
	const op = "ledger.validate"

	if order == nil {
		return domain.Invalid(op, "order is required")
	}

	if err := validate.Struct(order); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			f := errs[0]
			return domain.Errorf(domain.EINVALID, op, "invalid order: field %s failed %s", f.Field(), f.Tag())
		}
		return domain.WrapError(err, domain.EINVALID, op, "invalid order")
	}

	if !domain.ValidOrderStatus(order.Status) {
		return domain.Errorf(domain.EINVALID, op, "invalid order status %q", order.Status)
	}

	for _, line := range order.Items {
		if line.LineTotal != line.UnitPrice*line.Quantity {
			return domain.Errorf(domain.EINVALID, op,
				"line %s: total %d does not equal %d x %d", line.ProductID, line.LineTotal, line.UnitPrice, line.Quantity)
		}
	}

	if sum := order.ItemsTotal(); sum != order.TotalAmount {
		return domain.Errorf(domain.EINVALID, op,
			"order total %d does not match line sum %d", order.TotalAmount, sum)
	}

	return nil
}
