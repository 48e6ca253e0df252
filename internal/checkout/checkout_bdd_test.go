package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/pricing"
)

type flowTestContext struct {
	catalog *catalog.Catalog
	flow    *checkout.Flow
	order   checkout.Order
	err     error
}

func (c *flowTestContext) reset() {
	c.catalog = nil
	c.flow = nil
	c.order = checkout.Order{}
	c.err = nil
}

func (c *flowTestContext) theCatalog(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("catalog table needs a header and at least one row")
	}
	products := make([]catalog.Product, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 3 {
			return fmt.Errorf("expected 3 cells, got %d", len(row.Cells))
		}
		price, err := pricing.ParseDecimal(row.Cells[2].Value)
		if err != nil {
			return err
		}
		products = append(products, catalog.Product{ID: row.Cells[0].Value, Name: row.Cells[1].Value, Price: price})
	}
	cat, err := catalog.New(products)
	if err != nil {
		return err
	}
	c.catalog = cat
	c.flow = checkout.NewFlow(cat)
	return nil
}

func (c *flowTestContext) iSelectProduct(id string) error {
	_, c.err = c.flow.SelectProduct(id)
	return nil
}

func (c *flowTestContext) iSelectAllProducts() error {
	_, c.err = c.flow.SelectAll()
	return nil
}

func (c *flowTestContext) iIncreaseProduct(id string) error {
	_, c.err = c.flow.Increase(id)
	return nil
}

func (c *flowTestContext) iConfirmTheOrder() error {
	c.order, c.err = c.flow.Confirm()
	return nil
}

func (c *flowTestContext) iAcknowledgeTheConfirmation() error {
	c.err = c.flow.Acknowledge()
	return nil
}

func (c *flowTestContext) iGoBackToTheProductList() error {
	c.err = c.flow.Browse()
	return nil
}

func (c *flowTestContext) iOpenTheCartScreen() error {
	_, c.err = c.flow.ViewCart()
	return c.err
}

func (c *flowTestContext) theStateIs(want string) error {
	if got := c.flow.State().String(); got != want {
		return fmt.Errorf("expected state %q, got %q (last error: %v)", want, got, c.err)
	}
	return nil
}

func (c *flowTestContext) theCartTotalIs(amount string) error {
	want, err := pricing.ParseDecimal(amount)
	if err != nil {
		return err
	}
	if got := c.flow.Snapshot().Total; got != want {
		return fmt.Errorf("expected cart total %s, got %s", pricing.Format(want, ""), pricing.Format(got, ""))
	}
	return nil
}

func (c *flowTestContext) theCartHasLines(n int) error {
	if got := len(c.flow.Snapshot().Lines); got != n {
		return fmt.Errorf("expected %d cart lines, got %d", n, got)
	}
	return nil
}

func (c *flowTestContext) productHasQuantity(id string, qty int) error {
	for _, l := range c.flow.Snapshot().Lines {
		if l.ProductID == id {
			if l.Quantity != qty {
				return fmt.Errorf("expected product %s quantity %d, got %d", id, qty, l.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("product %s not in cart", id)
}

func (c *flowTestContext) theCartIsEmpty() error {
	if snap := c.flow.Snapshot(); !snap.IsEmpty() || snap.Total != 0 {
		return fmt.Errorf("expected empty cart, got %d lines totalling %d", len(snap.Lines), snap.Total)
	}
	return nil
}

func (c *flowTestContext) theOrderTotalIs(amount string) error {
	if c.err != nil {
		return fmt.Errorf("confirm failed: %w", c.err)
	}
	want, err := pricing.ParseDecimal(amount)
	if err != nil {
		return err
	}
	if c.order.Total != want {
		return fmt.Errorf("expected order total %s, got %s", pricing.Format(want, ""), pricing.Format(c.order.Total, ""))
	}
	return nil
}

func (c *flowTestContext) iSeeTheWarning(message string) error {
	if !errors.Is(c.err, checkout.ErrEmptyCart) {
		return fmt.Errorf("expected empty cart warning, got %v", c.err)
	}
	var appErr *common.AppError
	if !errors.As(c.err, &appErr) || appErr.Message != message {
		return fmt.Errorf("expected warning %q, got %v", message, c.err)
	}
	return nil
}

func (c *flowTestContext) rejectedAsInvalidTransition() error {
	if !errors.Is(c.err, checkout.ErrInvalidTransition) {
		return fmt.Errorf("expected invalid transition, got %v", c.err)
	}
	return nil
}

func (c *flowTestContext) rejectedAsUnknownProduct() error {
	if !errors.Is(c.err, checkout.ErrUnknownProduct) {
		return fmt.Errorf("expected unknown product, got %v", c.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &flowTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^the catalog:$`, tc.theCatalog)
	ctx.Step(`^I open the cart screen$`, tc.iOpenTheCartScreen)

	ctx.Step(`^I select product "([^"]*)"$`, tc.iSelectProduct)
	ctx.Step(`^I select all products$`, tc.iSelectAllProducts)
	ctx.Step(`^I increase product "([^"]*)"$`, tc.iIncreaseProduct)
	ctx.Step(`^I confirm the order$`, tc.iConfirmTheOrder)
	ctx.Step(`^I acknowledge the confirmation$`, tc.iAcknowledgeTheConfirmation)
	ctx.Step(`^I go back to the product list$`, tc.iGoBackToTheProductList)

	ctx.Step(`^the state is "([^"]*)"$`, tc.theStateIs)
	ctx.Step(`^the cart total is (\d+(?:\.\d{1,2})?)$`, tc.theCartTotalIs)
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^product "([^"]*)" has quantity (\d+)$`, tc.productHasQuantity)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the order total is (\d+(?:\.\d{1,2})?)$`, tc.theOrderTotalIs)
	ctx.Step(`^I see the warning "([^"]*)"$`, tc.iSeeTheWarning)
	ctx.Step(`^the action is rejected as an invalid transition$`, tc.rejectedAsInvalidTransition)
	ctx.Step(`^the action is rejected as an unknown product$`, tc.rejectedAsUnknownProduct)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
