package report

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const currency = money.USD

var hundred = decimal.NewFromInt(100)

// Money formats a USD amount rounded to cents, e.g. "$1,234.56" or "-$3.10"
func Money(amount decimal.Decimal) string {
	cur := money.GetCurrency(currency)
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}

// SignedMoney is Money with an explicit plus sign for gains
func SignedMoney(amount decimal.Decimal) string {
	if amount.Round(2).IsPositive() {
		return "+" + Money(amount)
	}
	return Money(amount)
}

// Percent formats a percentage with two decimals and a sign, e.g. "+4.20%"
func Percent(p decimal.Decimal) string {
	s := p.StringFixed(2)
	if p.Round(2).IsPositive() {
		s = "+" + s
	}
	return fmt.Sprintf("%s%%", s)
}

// Fraction formats a ratio as a signed percentage, e.g. 0.042 as "+4.20%"
func Fraction(f decimal.Decimal) string {
	return Percent(f.Mul(hundred))
}
