package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pricewatch/pricewatch/models"
)

// productsFile mirrors the on-disk shape of products.yaml.
type productsFile struct {
	Products []productEntry `yaml:"products"`
}

type productEntry struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	Selector    string   `yaml:"selector"`
	TargetPrice *float64 `yaml:"target_price"`
}

// LoadProducts reads and validates the products file. An unreadable file
// or an empty product list is a startup failure for the caller.
func LoadProducts(path string) ([]models.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}

	var file productsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse products file: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("no products in %s", path)
	}

	products := make([]models.Product, 0, len(file.Products))
	for i, entry := range file.Products {
		product, err := entry.toProduct()
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i+1, err)
		}
		products = append(products, product)
	}
	return products, nil
}

func (e productEntry) toProduct() (models.Product, error) {
	if e.URL == "" {
		return models.Product{}, fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(e.URL)
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid url %q: %w", e.URL, err)
	}
	if parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return models.Product{}, fmt.Errorf("url %q must be absolute http(s)", e.URL)
	}
	if e.Selector == "" {
		return models.Product{}, fmt.Errorf("selector is required for %s", e.URL)
	}

	name := e.Name
	if name == "" {
		name = e.URL
	}

	product := models.Product{
		Name:     name,
		URL:      e.URL,
		Selector: e.Selector,
	}
	if e.TargetPrice != nil {
		product.TargetPrice = decimal.NewFromFloat(*e.TargetPrice)
		product.HasTarget = true
	}
	return product, nil
}
