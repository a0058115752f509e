package proposal

import "github.com/shopspring/decimal"

// LineTotal is price × qty × (1 − discount/100).
func LineTotal(price decimal.Decimal, qty int, discount decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discount.Div(hundred))
	return price.Mul(decimal.NewFromInt(int64(qty))).Mul(factor)
}

// MonthlyTotal is the discounted monthly amount of the line; zero when the
// price is unknown.
func (it Item) MonthlyTotal() decimal.Decimal {
	if !it.Monthly.Known {
		return decimal.Zero
	}
	return LineTotal(it.Monthly.Amount, int(it.Quantity), it.Discount.Decimal)
}

// InstallationTotal is the discounted one-off amount of the line; zero when
// the price is unknown.
func (it Item) InstallationTotal() decimal.Decimal {
	if !it.Installation.Known {
		return decimal.Zero
	}
	return LineTotal(it.Installation.Amount, int(it.Quantity), it.Discount.Decimal)
}

// GroupTotal sums one item group.
type GroupTotal struct {
	Key          string          `json:"grupo"`
	Label        string          `json:"rotulo"`
	Items        int             `json:"itens"`
	Monthly      decimal.Decimal `json:"mensal"`
	Installation decimal.Decimal `json:"instalacao"`
}

// Totals sums every group and the whole proposal. OnRequest counts lines
// without any known price.
type Totals struct {
	Groups       []GroupTotal    `json:"grupos"`
	Monthly      decimal.Decimal `json:"mensal"`
	Installation decimal.Decimal `json:"instalacao"`
	OnRequest    int             `json:"sob_consulta"`
}

// Compute totals p. Empty groups total zero. Group subtotals are rounded to
// cents for display; the grand totals sum the unrounded lines and are
// rounded once.
func Compute(p *Proposal) Totals {
	var t Totals
	t.Monthly = decimal.Zero
	t.Installation = decimal.Zero
	if p == nil {
		return t
	}
	for _, g := range p.Groups() {
		gt := GroupTotal{Key: g.Key, Label: g.Label, Items: len(g.Items), Monthly: decimal.Zero, Installation: decimal.Zero}
		for _, it := range g.Items {
			if !it.Priced() {
				t.OnRequest++
			}
			gt.Monthly = gt.Monthly.Add(it.MonthlyTotal())
			gt.Installation = gt.Installation.Add(it.InstallationTotal())
		}
		t.Monthly = t.Monthly.Add(gt.Monthly)
		t.Installation = t.Installation.Add(gt.Installation)
		gt.Monthly = gt.Monthly.Round(2)
		gt.Installation = gt.Installation.Round(2)
		t.Groups = append(t.Groups, gt)
	}
	t.Monthly = t.Monthly.Round(2)
	t.Installation = t.Installation.Round(2)
	return t
}
