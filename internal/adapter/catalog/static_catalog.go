// Package catalog implements ports.ProductCatalog. The spec never describes
// a product CRUD surface, so there is no catalog_service.go and no database
// table: products are declared once in a YAML file and held in memory for
// the life of the process, the same way the gateway's own merchant
// configuration is loaded once at startup rather than mutated at runtime.
package catalog

import (
	"context"
	"fmt"

	"payuni-gateway/internal/core/domain"

	"github.com/spf13/viper"
)

type productEntry struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Price       int64  `mapstructure:"price"`
	PeriodType  string `mapstructure:"period_type"`
	PeriodDate  int    `mapstructure:"period_date"`
	PeriodTimes int    `mapstructure:"period_times"`
	FirstType   string `mapstructure:"first_type"`
	FirstAmount *int64 `mapstructure:"first_amount"`
}

// StaticCatalog is an in-memory, read-only ports.ProductCatalog loaded once
// from a YAML file at startup.
type StaticCatalog struct {
	products map[string]domain.Product
}

// LoadStaticCatalog reads a product catalog from path (YAML, keyed under
// "products").
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading product catalog %s: %w", path, err)
	}

	var entries []productEntry
	if err := v.UnmarshalKey("products", &entries); err != nil {
		return nil, fmt.Errorf("parsing product catalog %s: %w", path, err)
	}

	products := make(map[string]domain.Product, len(entries))
	for _, e := range entries {
		products[e.ID] = domain.Product{
			ID:          e.ID,
			Name:        e.Name,
			Type:        domain.ProductType(e.Type),
			Price:       e.Price,
			PeriodType:  domain.PeriodType(e.PeriodType),
			PeriodDate:  e.PeriodDate,
			PeriodTimes: e.PeriodTimes,
			FirstType:   domain.FirstChargeType(e.FirstType),
			FirstAmount: e.FirstAmount,
		}
	}

	return &StaticCatalog{products: products}, nil
}

// NewInMemoryCatalog builds a catalog directly from a slice, for tests and
// for embedding a default catalog when no file is configured.
func NewInMemoryCatalog(products []domain.Product) *StaticCatalog {
	m := make(map[string]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &StaticCatalog{products: m}
}

// GetByID looks up a product by id. Returns nil, nil if not found.
func (c *StaticCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
