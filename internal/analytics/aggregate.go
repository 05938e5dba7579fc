package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

// SaleRecord is one sale as seen by the aggregation. HT and TTC are the
// amounts of a single occurrence.
type SaleRecord struct {
	ID        uint
	ClientID  uint
	Label     string
	Rule      recurrence.Rule
	HT        decimal.Decimal
	TTC       decimal.Decimal
	Paid      bool
	Cancelled bool
}

// ChargeRecord is one charge; Amount is the amount of a single occurrence.
type ChargeRecord struct {
	ID        uint
	Label     string
	Category  string
	Rule      recurrence.Rule
	Amount    decimal.Decimal
	SaleID    *uint
	ClientID  *uint
	ArticleID *uint
}

// Linked reports whether the charge is tied to a sale, client or article.
func (c ChargeRecord) Linked() bool {
	return c.SaleID != nil || c.ClientID != nil || c.ArticleID != nil
}

// Rates are fractions (0.20 for 20%).
type Rates struct {
	TVA    decimal.Decimal `json:"tva_rate"`
	URSSAF decimal.Decimal `json:"urssaf_rate"`
}

// Totals of a window. Amounts are unrounded until Rounded is called.
type Totals struct {
	SalesCount        int                        `json:"sales_count"`
	RecurringSales    int                        `json:"recurring_sales_count"`
	RevenueHT         decimal.Decimal            `json:"ca_ht"`
	RevenueTTC        decimal.Decimal            `json:"ca_ttc"`
	TVA               decimal.Decimal            `json:"tva"`
	URSSAF            decimal.Decimal            `json:"urssaf"`
	PaidTTC           decimal.Decimal            `json:"paid_ttc"`
	PendingTTC        decimal.Decimal            `json:"pending_ttc"`
	ChargesCount      int                        `json:"charges_count"`
	RecurringCharges  int                        `json:"recurring_charges_count"`
	LinkedCharges     int                        `json:"linked_charges_count"`
	Charges           decimal.Decimal            `json:"charges"`
	Result            decimal.Decimal            `json:"result"`
	ChargesByCategory map[string]decimal.Decimal `json:"charges_by_category,omitempty"`
}

// Aggregate sums every occurrence of sales and charges falling in w.
// Cancelled sales are ignored.
func Aggregate(w Window, sales []SaleRecord, charges []ChargeRecord, rates Rates) Totals {
	var t Totals
	for _, s := range sales {
		if s.Cancelled {
			continue
		}
		n := recurrence.Count(s.Rule, w.Start, w.End)
		if n == 0 {
			continue
		}
		k := decimal.NewFromInt(int64(n))
		t.SalesCount += n
		if s.Rule.Type.IsRecurring() {
			t.RecurringSales += n
		}
		t.RevenueHT = t.RevenueHT.Add(s.HT.Mul(k))
		ttc := s.TTC.Mul(k)
		t.RevenueTTC = t.RevenueTTC.Add(ttc)
		if s.Paid {
			t.PaidTTC = t.PaidTTC.Add(ttc)
		} else {
			t.PendingTTC = t.PendingTTC.Add(ttc)
		}
	}
	for _, c := range charges {
		n := recurrence.Count(c.Rule, w.Start, w.End)
		if n == 0 {
			continue
		}
		amount := c.Amount.Mul(decimal.NewFromInt(int64(n)))
		t.ChargesCount += n
		if c.Rule.Type.IsRecurring() {
			t.RecurringCharges += n
		}
		if c.Linked() {
			t.LinkedCharges += n
		}
		t.Charges = t.Charges.Add(amount)
		if t.ChargesByCategory == nil {
			t.ChargesByCategory = make(map[string]decimal.Decimal)
		}
		cat := c.Category
		if cat == "" {
			cat = "autre"
		}
		t.ChargesByCategory[cat] = t.ChargesByCategory[cat].Add(amount)
	}
	t.derive(rates)
	return t
}

func (t *Totals) derive(rates Rates) {
	t.TVA = t.RevenueTTC.Sub(t.RevenueHT)
	t.URSSAF = t.RevenueHT.Mul(rates.URSSAF)
	t.Result = t.RevenueHT.Sub(t.URSSAF).Sub(t.Charges)
}

// Add accumulates o into t. Derived amounts are summed as well, which is
// exact because they are linear in the base amounts.
func (t *Totals) Add(o Totals) {
	t.SalesCount += o.SalesCount
	t.RecurringSales += o.RecurringSales
	t.RevenueHT = t.RevenueHT.Add(o.RevenueHT)
	t.RevenueTTC = t.RevenueTTC.Add(o.RevenueTTC)
	t.TVA = t.TVA.Add(o.TVA)
	t.URSSAF = t.URSSAF.Add(o.URSSAF)
	t.PaidTTC = t.PaidTTC.Add(o.PaidTTC)
	t.PendingTTC = t.PendingTTC.Add(o.PendingTTC)
	t.ChargesCount += o.ChargesCount
	t.RecurringCharges += o.RecurringCharges
	t.LinkedCharges += o.LinkedCharges
	t.Charges = t.Charges.Add(o.Charges)
	t.Result = t.Result.Add(o.Result)
	for k, v := range o.ChargesByCategory {
		if t.ChargesByCategory == nil {
			t.ChargesByCategory = make(map[string]decimal.Decimal)
		}
		t.ChargesByCategory[k] = t.ChargesByCategory[k].Add(v)
	}
}

// Rounded returns a copy with every amount rounded to cents.
func (t Totals) Rounded() Totals {
	r := t
	r.RevenueHT = t.RevenueHT.Round(2)
	r.RevenueTTC = t.RevenueTTC.Round(2)
	r.TVA = t.TVA.Round(2)
	r.URSSAF = t.URSSAF.Round(2)
	r.PaidTTC = t.PaidTTC.Round(2)
	r.PendingTTC = t.PendingTTC.Round(2)
	r.Charges = t.Charges.Round(2)
	r.Result = t.Result.Round(2)
	if t.ChargesByCategory != nil {
		r.ChargesByCategory = make(map[string]decimal.Decimal, len(t.ChargesByCategory))
		for k, v := range t.ChargesByCategory {
			r.ChargesByCategory[k] = v.Round(2)
		}
	}
	return r
}

// Step is one bucket of an evolution series.
type Step struct {
	Label  string `json:"label"`
	Window Window `json:"window"`
	Totals Totals `json:"totals"`
}

// Evolution is a per-step series plus the sum over all steps.
type Evolution struct {
	Granularity Granularity `json:"granularity"`
	Window      Window      `json:"window"`
	Steps       []Step      `json:"steps"`
	Totals      Totals      `json:"totals"`
}

// Evolve aggregates n steps of granularity g ending with the period containing anchor.
func Evolve(g Granularity, anchor time.Time, n int, sales []SaleRecord, charges []ChargeRecord, rates Rates) (Evolution, error) {
	windows, err := Steps(g, anchor, n)
	if err != nil {
		return Evolution{}, err
	}
	ev := Evolution{
		Granularity: g,
		Window:      Window{Start: windows[0].Start, End: windows[len(windows)-1].End},
		Steps:       make([]Step, 0, len(windows)),
	}
	var total Totals
	for _, w := range windows {
		t := Aggregate(w, sales, charges, rates)
		total.Add(t)
		ev.Steps = append(ev.Steps, Step{Label: Label(g, w), Window: w, Totals: t.Rounded()})
	}
	ev.Totals = total.Rounded()
	return ev, nil
}

// ClientTotal ranks a client by HT revenue in a window.
type ClientTotal struct {
	ClientID   uint            `json:"client_id"`
	Name       string          `json:"name,omitempty"`
	SalesCount int             `json:"sales_count"`
	RevenueHT  decimal.Decimal `json:"ca_ht"`
	RevenueTTC decimal.Decimal `json:"ca_ttc"`
}

// TopClients returns at most limit clients ordered by HT revenue, then id.
func TopClients(w Window, sales []SaleRecord, limit int) []ClientTotal {
	byClient := map[uint]*ClientTotal{}
	for _, s := range sales {
		if s.Cancelled || s.ClientID == 0 {
			continue
		}
		n := recurrence.Count(s.Rule, w.Start, w.End)
		if n == 0 {
			continue
		}
		k := decimal.NewFromInt(int64(n))
		ct, ok := byClient[s.ClientID]
		if !ok {
			ct = &ClientTotal{ClientID: s.ClientID}
			byClient[s.ClientID] = ct
		}
		ct.SalesCount += n
		ct.RevenueHT = ct.RevenueHT.Add(s.HT.Mul(k))
		ct.RevenueTTC = ct.RevenueTTC.Add(s.TTC.Mul(k))
	}
	out := make([]ClientTotal, 0, len(byClient))
	for _, ct := range byClient {
		ct.RevenueHT = ct.RevenueHT.Round(2)
		ct.RevenueTTC = ct.RevenueTTC.Round(2)
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].RevenueHT.Cmp(out[j].RevenueHT); c != 0 {
			return c > 0
		}
		return out[i].ClientID < out[j].ClientID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Occurrence is one projected sale or charge date.
type Occurrence struct {
	Kind       string          `json:"kind"`
	ID         uint            `json:"id"`
	Label      string          `json:"label"`
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Recurrence string          `json:"recurrence"`
}

const (
	KindSale   = "sale"
	KindCharge = "charge"
)

// Occurrences lists every projected sale (TTC) and charge date inside w,
// ordered by date, then kind, then id.
func Occurrences(w Window, sales []SaleRecord, charges []ChargeRecord) []Occurrence {
	var out []Occurrence
	for _, s := range sales {
		if s.Cancelled {
			continue
		}
		for _, d := range recurrence.ProjectOccurrences(s.Rule, w.Start, w.End) {
			out = append(out, Occurrence{Kind: KindSale, ID: s.ID, Label: s.Label, Date: d, Amount: s.TTC.Round(2), Recurrence: s.Rule.Type.String()})
		}
	}
	for _, c := range charges {
		for _, d := range recurrence.ProjectOccurrences(c.Rule, w.Start, w.End) {
			out = append(out, Occurrence{Kind: KindCharge, ID: c.ID, Label: c.Label, Date: d, Amount: c.Amount.Round(2), Recurrence: c.Rule.Type.String()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind > b.Kind
		}
		return a.ID < b.ID
	})
	return out
}
