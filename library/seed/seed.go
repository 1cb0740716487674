package seed

import (
	"context"
	_ "embed"

	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Items []struct {
		Title         string  `yaml:"title"`
		Author        string  `yaml:"author"`
		Category      string  `yaml:"category"`
		ISBN          *string `yaml:"isbn"`
		Description   string  `yaml:"description"`
		CoverEmoji    string  `yaml:"cover_emoji"`
		StockQuantity int     `yaml:"stock_quantity"`
	} `yaml:"items"`
}

// Catalog parses the embedded sample catalog.
func Catalog() ([]model.CreateItemRequest, error) {
	return parse(catalogYAML)
}

func parse(data []byte) ([]model.CreateItemRequest, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal")
	}
	out := make([]model.CreateItemRequest, 0, len(f.Items))
	for _, it := range f.Items {
		if it.Title == "" || it.Author == "" {
			return nil, errors.Errorf("seed item without title or author: %+v", it)
		}
		out = append(out, model.CreateItemRequest{
			Title:         it.Title,
			Author:        it.Author,
			Category:      it.Category,
			ISBN:          it.ISBN,
			Description:   it.Description,
			CoverEmoji:    it.CoverEmoji,
			StockQuantity: it.StockQuantity,
		})
	}
	return out, nil
}

type Library interface {
	ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	CreateItem(ctx context.Context, req model.CreateItemRequest) (model.Item, error)
	EnsureLibrarian(ctx context.Context, req model.RegisterRequest) (model.Member, error)
}

type Admin struct {
	Email    string
	Password string
	Name     string
}

// Run fills an empty catalog with the sample items and, when a password is given,
// makes sure the admin account exists with the librarian role. It returns the number of items added.
func Run(ctx context.Context, lib Library, admin Admin) (int, error) {
	if admin.Password != "" {
		if _, err := lib.EnsureLibrarian(ctx, model.RegisterRequest{
			Email:    admin.Email,
			Name:     admin.Name,
			Password: admin.Password,
		}); err != nil {
			return 0, errors.Wrap(err, "ensure librarian")
		}
	}

	existing, err := lib.ListItems(ctx, model.ItemFilter{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	items, err := Catalog()
	if err != nil {
		return 0, err
	}
	for _, req := range items {
		if _, err := lib.CreateItem(ctx, req); err != nil {
			return 0, errors.Wrapf(err, "create %q", req.Title)
		}
	}
	return len(items), nil
}
