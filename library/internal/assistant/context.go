package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/ibd-library/library-service/library/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	contextItemLimit = 20

	OperatingHours = "Weekdays 09:00-21:00, weekends 10:00-18:00"
	ClosedDays     = "Closed on the first and third Monday of each month"
	Contact        = "02-1234-5678, contact@ibd-library.com"
)

// Bundle is the catalog and policy snapshot handed to the language model.
type Bundle struct {
	Policy     []model.PolicyConfig
	Items      []model.Item
	Categories []string
}

func LoadBundle(ctx context.Context, lib Library) (Bundle, error) {
	var b Bundle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Policy, err = lib.ListPolicy(gctx)
		return err
	})
	g.Go(func() (err error) {
		b.Items, err = lib.ListItems(gctx, model.ItemFilter{Limit: contextItemLimit})
		return err
	})
	g.Go(func() (err error) {
		b.Categories, err = lib.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func (b Bundle) String() string {
	var sb strings.Builder
	sb.WriteString("### Library information\n\nPolicy:\n")
	for _, c := range b.Policy {
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", c.Key, c.Value, c.Description)
	}
	sb.WriteString("\nBooks (partial list):\n")
	for _, it := range b.Items {
		category := it.Category
		if category == "" {
			category = "uncategorized"
		}
		fmt.Fprintf(&sb, "- [%d] %q by %s, category: %s, in stock: %d\n", it.ID, it.Title, it.Author, category, it.StockQuantity)
	}
	fmt.Fprintf(&sb, "\nCategories: %s\n", strings.Join(b.Categories, ", "))
	fmt.Fprintf(&sb, "\nOpening hours: %s\n%s\nContact: %s\n", OperatingHours, ClosedDays, Contact)
	return sb.String()
}
