package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ncanimate/internal/services"
)

// Resolver looks up product definitions by ID.
type Resolver interface {
	Product(ctx context.Context, id string) (*Product, error)
}

// FileResolver reads <Dir>/<id>.toml definitions.
type FileResolver struct {
	Dir string
}

// NewFileResolver returns a resolver rooted at dir.
func NewFileResolver(dir string) *FileResolver {
	return &FileResolver{Dir: dir}
}

// Product loads and validates the definition for id.
func (r *FileResolver) Product(_ context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "resolve", fmt.Sprintf("invalid product id %q", id), nil)
	}
	path := filepath.Join(r.Dir, id+".toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "catalog", "resolve", fmt.Sprintf("product %q not found in %s", id, r.Dir), services.ErrNotFound)
		}
		return nil, fmt.Errorf("read product %s: %w", path, err)
	}
	product, err := Parse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "parse", path, err)
	}
	if product.ID != id {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "resolve", fmt.Sprintf("%s declares id %q", path, product.ID), nil)
	}
	return product, nil
}

// List loads every definition in the catalog directory, sorted by ID.
func (r *FileResolver) List(ctx context.Context) ([]*Product, error) {
	matches, err := filepath.Glob(filepath.Join(r.Dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	products := make([]*Product, 0, len(matches))
	for _, match := range matches {
		id := strings.TrimSuffix(filepath.Base(match), ".toml")
		product, err := r.Product(ctx, id)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}
