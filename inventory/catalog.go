/*
catalog.go - Products and warehouses

PURPOSE:
  Simple CRUD for the entities documents and stock rows reference by id.

INVARIANTS:
  - Warehouse code is unique, compared trimmed and case-insensitively, and
    stored trimmed. It can't be changed after creation.
  - SKU is stored trimmed and upper-cased. Uniqueness is NOT enforced unless
    the catalog is built with enforceSKU (Options.EnforceUniqueSKU).
  - Products are never deleted. UpdatedAt moves on every update.

SEE ALSO:
  - inventory.go: persists the catalog after each mutation
*/
package inventory

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProductInput is the caller-supplied part of a new product.
type ProductInput struct {
	SKU          string        `json:"sku" validate:"required,max=64"`
	Name         string        `json:"name" validate:"required,max=200"`
	Category     Category      `json:"category" validate:"required,oneof=Electronics Furniture Clothing Food Books Tools Other"`
	UOM          UnitOfMeasure `json:"uom" validate:"required,oneof=pcs kg lbs box carton dozen"`
	ReorderLevel int           `json:"reorderLevel" validate:"gte=0"`
	Description  string        `json:"description"`
}

// ProductUpdate is a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	SKU          *string        `json:"sku,omitempty" validate:"omitnil,required,max=64"`
	Name         *string        `json:"name,omitempty" validate:"omitnil,required,max=200"`
	Category     *Category      `json:"category,omitempty" validate:"omitnil,oneof=Electronics Furniture Clothing Food Books Tools Other"`
	UOM          *UnitOfMeasure `json:"uom,omitempty" validate:"omitnil,oneof=pcs kg lbs box carton dozen"`
	ReorderLevel *int           `json:"reorderLevel,omitempty" validate:"omitnil,gte=0"`
	Description  *string        `json:"description,omitempty"`
}

// WarehouseInput is the caller-supplied part of a new warehouse.
type WarehouseInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Code    string `json:"code" validate:"required,max=32"`
	Address string `json:"address"`
}

// WarehouseUpdate only reaches name and address; code is immutable.
type WarehouseUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitnil,required,max=200"`
	Address *string `json:"address,omitempty"`
}

// Catalog holds products and warehouses for one user scope.
type Catalog struct {
	products   []Product
	warehouses []Warehouse

	ids        IDGenerator
	now        func() time.Time
	validate   *validator.Validate
	enforceSKU bool
}

func newCatalog(products []Product, warehouses []Warehouse, ids IDGenerator, now func() time.Time, v *validator.Validate, enforceSKU bool) *Catalog {
	c := &Catalog{
		products:   append([]Product(nil), products...),
		ids:        ids,
		now:        now,
		validate:   v,
		enforceSKU: enforceSKU,
	}
	for _, w := range warehouses {
		c.warehouses = append(c.warehouses, w.clone())
	}
	return c
}

// NormalizeSKU is the stored form of a SKU.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// NormalizeCode is the comparison form of a warehouse code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// =============================================================================
// PRODUCTS
// =============================================================================

// AddProduct creates a product with a fresh id and timestamps.
func (c *Catalog) AddProduct(in ProductInput) (Product, error) {
	in.SKU = NormalizeSKU(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(c.validate, in); err != nil {
		return Product{}, err
	}
	if c.enforceSKU {
		if existing, ok := c.ProductBySKU(in.SKU); ok {
			return Product{}, &DuplicateSKUError{SKU: in.SKU, Existing: existing.ID}
		}
	}

	now := c.now()
	p := Product{
		ID:           ProductID(c.ids.NewID("prod")),
		SKU:          in.SKU,
		Name:         in.Name,
		Category:     in.Category,
		UOM:          in.UOM,
		ReorderLevel: in.ReorderLevel,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c.products = append(c.products, p)
	return p, nil
}

// UpdateProduct applies a partial update and refreshes UpdatedAt.
func (c *Catalog) UpdateProduct(id ProductID, upd ProductUpdate) (Product, error) {
	i := c.productIndex(id)
	if i < 0 {
		return Product{}, &NotFoundError{Entity: "product", ID: string(id)}
	}
	if upd.SKU != nil {
		sku := NormalizeSKU(*upd.SKU)
		upd.SKU = &sku
	}
	if err := checkStruct(c.validate, upd); err != nil {
		return Product{}, err
	}

	p := c.products[i]
	if upd.SKU != nil {
		if c.enforceSKU {
			if existing, ok := c.ProductBySKU(*upd.SKU); ok && existing.ID != id {
				return Product{}, &DuplicateSKUError{SKU: *upd.SKU, Existing: existing.ID}
			}
		}
		p.SKU = *upd.SKU
	}
	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.UOM != nil {
		p.UOM = *upd.UOM
	}
	if upd.ReorderLevel != nil {
		p.ReorderLevel = *upd.ReorderLevel
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	p.UpdatedAt = c.now()
	c.products[i] = p
	return p, nil
}

// Product looks up a product by id.
func (c *Catalog) Product(id ProductID) (Product, bool) {
	if i := c.productIndex(id); i >= 0 {
		return c.products[i], true
	}
	return Product{}, false
}

// ProductBySKU returns the first product carrying sku (normalized).
func (c *Catalog) ProductBySKU(sku string) (Product, bool) {
	sku = NormalizeSKU(sku)
	for _, p := range c.products {
		if p.SKU == sku {
			return p, true
		}
	}
	return Product{}, false
}

// Products returns all products in creation order.
func (c *Catalog) Products() []Product {
	return append([]Product{}, c.products...)
}

func (c *Catalog) productIndex(id ProductID) int {
	for i, p := range c.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// WAREHOUSES
// =============================================================================

// AddWarehouse creates a warehouse. Codes collide trimmed and case-insensitively.
func (c *Catalog) AddWarehouse(in WarehouseInput) (Warehouse, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(c.validate, in); err != nil {
		return Warehouse{}, err
	}
	code := NormalizeCode(in.Code)
	for _, w := range c.warehouses {
		if NormalizeCode(w.Code) == code {
			return Warehouse{}, &DuplicateCodeError{Code: in.Code}
		}
	}

	w := Warehouse{
		ID:      WarehouseID(c.ids.NewID("wh")),
		Name:    in.Name,
		Code:    in.Code,
		Address: in.Address,
		Racks:   []Rack{},
	}
	c.warehouses = append(c.warehouses, w)
	return w.clone(), nil
}

// UpdateWarehouse changes name and/or address.
func (c *Catalog) UpdateWarehouse(id WarehouseID, upd WarehouseUpdate) (Warehouse, error) {
	i := c.warehouseIndex(id)
	if i < 0 {
		return Warehouse{}, &NotFoundError{Entity: "warehouse", ID: string(id)}
	}
	if err := checkStruct(c.validate, upd); err != nil {
		return Warehouse{}, err
	}
	if upd.Name != nil {
		c.warehouses[i].Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Address != nil {
		c.warehouses[i].Address = *upd.Address
	}
	return c.warehouses[i].clone(), nil
}

// Warehouse looks up a warehouse by id.
func (c *Catalog) Warehouse(id WarehouseID) (Warehouse, bool) {
	if i := c.warehouseIndex(id); i >= 0 {
		return c.warehouses[i].clone(), true
	}
	return Warehouse{}, false
}

// WarehouseByCode looks up a warehouse by code, trimmed and case-insensitively.
func (c *Catalog) WarehouseByCode(code string) (Warehouse, bool) {
	code = NormalizeCode(code)
	for _, w := range c.warehouses {
		if NormalizeCode(w.Code) == code {
			return w.clone(), true
		}
	}
	return Warehouse{}, false
}

// Warehouses returns all warehouses in creation order.
func (c *Catalog) Warehouses() []Warehouse {
	out := make([]Warehouse, 0, len(c.warehouses))
	for _, w := range c.warehouses {
		out = append(out, w.clone())
	}
	return out
}

func (c *Catalog) warehouseIndex(id WarehouseID) int {
	for i, w := range c.warehouses {
		if w.ID == id {
			return i
		}
	}
	return -1
}
