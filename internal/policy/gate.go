package policy

import "github.com/ares-dev-tech/dashboard/gate"

// Resource types known to the gate.
const (
	ResourceClient  = "client"
	ResourceArticle = "article"
	ResourceSale    = "sale"
	ResourceCharge  = "charge"
	ResourceSetting = "setting"
)

// NewGate returns the gate used by the services: ownership on every record
// type. Settings are never created or deleted one by one, only read and
// upserted.
func NewGate() *gate.Gate[uint] {
	g := gate.NewGate[uint]()
	owner := NewOwnershipPolicy()
	for _, r := range []string{ResourceClient, ResourceArticle, ResourceSale, ResourceCharge} {
		g.Register(r, owner)
	}
	g.Register(ResourceSetting, gate.AllowActions[uint](owner, gate.ActionList, gate.ActionView, gate.ActionUpdate))
	return g
}
