package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// Source supplies the raw product list a Catalog is built from.
type Source interface {
	Load(ctx context.Context) ([]Product, error)
}

// StaticSource serves a fixed in-memory product list.
type StaticSource struct {
	Products []Product
}

// Load implements Source.
func (s StaticSource) Load(context.Context) ([]Product, error) {
	if s.Products == nil {
		return DefaultProducts(), nil
	}
	out := make([]Product, len(s.Products))
	copy(out, s.Products)
	return out, nil
}

// FileSource reads a JSON product list from disk.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load(context.Context) ([]Product, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return DecodeProducts(bytes.NewReader(data))
}

// MaxPayloadBytes caps how much of a catalog file or response is read.
const MaxPayloadBytes = 1 << 20

// record is the interchange format for catalog files and remote endpoints.
// Prices are decimals in major units, as a JSON number or string.
type record struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// DecodeProducts parses either a bare JSON array of products or a
// {"data": [...]} envelope.
func DecodeProducts(r io.Reader) ([]Product, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read catalog payload: %w", err)
	}
	if len(raw) > MaxPayloadBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidCatalog, MaxPayloadBytes)
	}
	raw = bytes.TrimSpace(raw)
	var records []record
	if len(raw) > 0 && raw[0] == '{' {
		var envelope struct {
			Data []record `json:"data"`
		}
		if err := decodeStrict(raw, &envelope); err != nil {
			return nil, err
		}
		records = envelope.Data
	} else if err := decodeStrict(raw, &records); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(records))
	for _, rec := range records {
		price, err := pricing.ParseDecimal(rec.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: product %q: %v", ErrInvalidCatalog, rec.ID, err)
		}
		products = append(products, Product{ID: rec.ID, Name: rec.Name, Price: price})
	}
	return products, nil
}

func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode catalog payload: %w", err)
	}
	return nil
}
