package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/bakehouse/internal/state"
)

// File loads the catalog from a TOML document of [[bakery]] tables:
//
//	[[bakery]]
//	id = "grandma"
//	name = "Grandma's Kitchen"
//	production_rate = 0.1
//	cost = 15
type File struct {
	Path  string
	Delay time.Duration
}

type fileDocument struct {
	Bakery []state.CatalogItem `toml:"bakery"`
}

// FetchCatalog reads and validates the file. The file is read on every call
// so edits show up on the next refresh.
func (f *File) FetchCatalog(ctx context.Context) ([]state.CatalogItem, error) {
	if err := sleep(ctx, f.Delay); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a TOML catalog document and validates it.
func Parse(data []byte) ([]state.CatalogItem, error) {
	var doc fileDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := Validate(doc.Bakery); err != nil {
		return nil, err
	}
	if doc.Bakery == nil {
		doc.Bakery = []state.CatalogItem{}
	}
	return doc.Bakery, nil
}

// Encode renders items as a TOML catalog document.
func Encode(items []state.CatalogItem) ([]byte, error) {
	data, err := toml.Marshal(fileDocument{Bakery: items})
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return data, nil
}
