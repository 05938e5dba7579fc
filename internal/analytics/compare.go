package analytics

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Delta compares one amount between two periods. Percent is nil when the
// previous amount is zero.
type Delta struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Change   decimal.Decimal `json:"change"`
	Percent  *float64        `json:"percent"`
}

func newDelta(cur, prev decimal.Decimal) Delta {
	d := Delta{Current: cur.Round(2), Previous: prev.Round(2), Change: cur.Sub(prev).Round(2)}
	if !prev.IsZero() {
		p, _ := cur.Sub(prev).Div(prev.Abs()).Mul(hundred).Round(1).Float64()
		d.Percent = &p
	}
	return d
}

// Comparison is the period-over-period view of the dashboard.
type Comparison struct {
	Previous     Window `json:"previous"`
	RevenueHT    Delta  `json:"ca_ht"`
	RevenueTTC   Delta  `json:"ca_ttc"`
	URSSAF       Delta  `json:"urssaf"`
	Charges      Delta  `json:"charges"`
	Result       Delta  `json:"result"`
	SalesCount   int    `json:"sales_count_change"`
	ChargesCount int    `json:"charges_count_change"`
}

func Compare(previous Window, cur, prev Totals) Comparison {
	return Comparison{
		Previous:     previous,
		RevenueHT:    newDelta(cur.RevenueHT, prev.RevenueHT),
		RevenueTTC:   newDelta(cur.RevenueTTC, prev.RevenueTTC),
		URSSAF:       newDelta(cur.URSSAF, prev.URSSAF),
		Charges:      newDelta(cur.Charges, prev.Charges),
		Result:       newDelta(cur.Result, prev.Result),
		SalesCount:   cur.SalesCount - prev.SalesCount,
		ChargesCount: cur.ChargesCount - prev.ChargesCount,
	}
}

// Summary is the dashboard payload for one window.
type Summary struct {
	Window     Window        `json:"window"`
	Rates      Rates         `json:"rates"`
	Totals     Totals        `json:"totals"`
	Comparison Comparison    `json:"comparison"`
	TopClients []ClientTotal `json:"top_clients"`
}

// Summarize aggregates w and the window before it.
func Summarize(w Window, sales []SaleRecord, charges []ChargeRecord, rates Rates, topN int) Summary {
	cur := Aggregate(w, sales, charges, rates)
	prevWindow := w.Previous()
	prev := Aggregate(prevWindow, sales, charges, rates)
	return Summary{
		Window:     w,
		Rates:      rates,
		Totals:     cur.Rounded(),
		Comparison: Compare(prevWindow, cur, prev),
		TopClients: TopClients(w, sales, topN),
	}
}
