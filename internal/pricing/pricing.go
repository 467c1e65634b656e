// Package pricing is the single shared implementation of order money math:
// subtotal/tax/total derivation, discount application, and loyalty point
// conversion. Everything here is a pure function of its inputs so the same
// call always yields the same result.
package pricing

import (
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PointValue is how many currency minor units one loyalty point is worth.
const PointValue = 1000

// Item is an order line as the calculator sees it: the unit price is the
// snapshot taken at order time, never the product's current price.
type Item struct {
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice decimal.Decimal
}

// Product carries the tax metadata the calculator needs. AfterTaxPrice is
// the tax-inclusive unit price; when absent the item contributes zero tax.
type Product struct {
	ID            uuid.UUID
	Price         decimal.Decimal
	AfterTaxPrice decimal.NullDecimal
}

// Totals is the result of a calculation. Total is floor(Subtotal+Tax) and
// is always integer-valued in minor units.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CalculateTotals derives subtotal, tax and total from order lines and the
// product catalog. Lines with a non-positive unit price or quantity are
// skipped with a log line rather than failing the whole order. Per-unit tax
// is derived only from a tax-inclusive price: max(0, afterTaxPrice - unitPrice).
// There is no fallback to a generic tax rate.
func CalculateTotals(items []Item, products map[uuid.UUID]Product) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero

	for _, it := range items {
		if it.Quantity <= 0 || it.UnitPrice.LessThanOrEqual(decimal.Zero) {
			log.Printf("WARN: skipping order line product=%s qty=%d unit_price=%s",
				it.ProductID, it.Quantity, it.UnitPrice)
			continue
		}

		qty := decimal.NewFromInt32(it.Quantity)
		subtotal = subtotal.Add(it.UnitPrice.Mul(qty))

		p, ok := products[it.ProductID]
		if !ok || !p.AfterTaxPrice.Valid {
			continue
		}
		taxPerUnit := p.AfterTaxPrice.Decimal.Sub(it.UnitPrice)
		if taxPerUnit.IsNegative() {
			taxPerUnit = decimal.Zero
		}
		tax = tax.Add(taxPerUnit.Mul(qty))
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax).Floor(),
	}
}

// FinalTotal applies an order-level discount after the total calculation:
// max(0, total - floor(discount)). The discount is floored here so every
// call site shares the same rounding behavior.
func FinalTotal(total, discount decimal.Decimal) decimal.Decimal {
	final := total.Sub(discount.Floor())
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// PointsValue converts a point balance to its currency value.
func PointsValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(decimal.NewFromInt(PointValue))
}

// CoversTotal reports whether a point balance can settle the full amount.
func CoversTotal(points int64, finalTotal decimal.Decimal) bool {
	return PointsValue(points).GreaterThanOrEqual(finalTotal)
}

// PointsNeeded is the number of points consumed by a points-only settlement:
// ceil(finalTotal / PointValue).
func PointsNeeded(finalTotal decimal.Decimal) int64 {
	return finalTotal.Div(decimal.NewFromInt(PointValue)).Ceil().IntPart()
}

// MixedRemainder is the amount still owed after consuming an entire point
// balance that does not cover the total. Callers must ensure
// !CoversTotal(points, finalTotal); the result is then strictly positive.
func MixedRemainder(points int64, finalTotal decimal.Decimal) decimal.Decimal {
	return finalTotal.Sub(PointsValue(points))
}
