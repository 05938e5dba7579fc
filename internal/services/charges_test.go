package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

func TestCharges_CRUD(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	uid := f.user.ID

	sale, err := f.svc.Sales.Create(ctx, uid, SaleInput{
		ClientID: f.client.ID,
		Date:     "2025-03-01",
		Items:    []SaleItemInput{{ArticleID: &f.audit.ID}},
	})
	require.NoError(t, err)

	c, err := f.svc.Charges.Create(ctx, uid, ChargeInput{
		Date:       "2025-01-05",
		Vendor:     " OVH ",
		Amount:     12.5,
		Recurrence: "monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultChargeCategory, c.Category)
	assert.Equal(t, "OVH", c.Vendor)
	assert.Equal(t, recurrence.Monthly, c.Recurrence)

	linked, err := f.svc.Charges.Create(ctx, uid, ChargeInput{
		Date:     "2025-03-02",
		Category: "Sous-traitance",
		Amount:   80,
		SaleID:   &sale.ID,
		ClientID: &f.client.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "sous-traitance", linked.Category)
	require.NotNil(t, linked.SaleID)
	assert.Equal(t, sale.ID, *linked.SaleID)

	page, err := f.svc.Charges.List(ctx, uid, ListParams{Query: "ovh"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, c.ID, page.Items[0].ID)

	updated, err := f.svc.Charges.Update(ctx, uid, c.ID, ChargeInput{Date: "2025-01-05", Category: "logiciel", Amount: 15, Recurrence: "mensuel", EndDate: "2025-12-31"})
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.Amount)
	require.NotNil(t, updated.EndDate)

	bob := register(t, f.svc, "bob@example.com")
	_, err = f.svc.Charges.Get(ctx, bob.ID, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.Charges.Delete(ctx, uid, c.ID))
	_, err = f.svc.Charges.Get(ctx, uid, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCharges_Validation(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	bob := register(t, f.svc, "bob@example.com")
	bobClient, err := f.svc.Clients.Create(ctx, bob.ID, ClientInput{Name: "Bob's"})
	require.NoError(t, err)

	missing := uint(9999)
	_, err = f.svc.Charges.Create(ctx, f.user.ID, ChargeInput{
		Amount:     0,
		Recurrence: "hebdo",
		ClientID:   &bobClient.ID,
		SaleID:     &missing,
		ArticleID:  &f.maintenance.ID,
	})
	v := violations(t, err)
	assert.Equal(t, "required", v["date"])
	assert.Equal(t, "must_be_positive", v["amount"])
	assert.Equal(t, "unknown_recurrence", v["recurrence"])
	assert.Equal(t, "unknown_reference", v["client_id"])
	assert.Equal(t, "unknown_reference", v["sale_id"])
	assert.NotContains(t, v, "article_id", "own article is a valid link")

	_, err = f.svc.Charges.Create(ctx, f.user.ID, ChargeInput{Date: "2025-03-01", Amount: 5, Recurrence: "annuel", EndDate: "2024-12-31"})
	assert.Equal(t, "end_before_start", violations(t, err)["end_date"])

	// The end date of a one-time charge is not checked.
	_, err = f.svc.Charges.Create(ctx, f.user.ID, ChargeInput{Date: "2025-03-01", Amount: 5, EndDate: "2024-12-31"})
	assert.NoError(t, err)
}
