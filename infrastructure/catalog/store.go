// Package catalog provides access to the external product catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/internal/database"
)

var (
	// ErrNotFound indicates the catalog has no active product with the
	// given id.
	ErrNotFound = errors.New("product not found in catalog")

	// ErrUnavailable indicates the catalog database could not be
	// queried.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Store fetches product records by id. Implementations return only
// active products; an inactive product behaves as not found.
type Store interface {
	Get(ctx context.Context, id int64) (product.Product, error)
}

// ProductModel is the catalog row as stored in the database. Column
// names follow the upstream catalog schema.
type ProductModel struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	ParentID     int64  `gorm:"column:id_padre"`
	Active       bool   `gorm:"column:activo"`
	Name         string `gorm:"column:nombre"`
	Description  string `gorm:"column:descripcion"`
	VariantCombo string `gorm:"column:variante_comb"`
}

// TableName implements the GORM table naming convention.
func (ProductModel) TableName() string { return "catalog_products" }

func (m ProductModel) toDomain() product.Product {
	return product.Product{
		ID:           m.ID,
		ParentID:     m.ParentID,
		Active:       m.Active,
		Name:         m.Name,
		Description:  m.Description,
		VariantCombo: m.VariantCombo,
	}
}

// GormStore is a Store backed by the catalog database.
type GormStore struct {
	db database.Database
}

// NewGormStore creates a GormStore.
func NewGormStore(db database.Database) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates the catalog table when missing. Intended for the
// sqlite backend and tests; production postgres schemas are managed
// upstream.
func (s *GormStore) AutoMigrate() error {
	return s.db.GORM().AutoMigrate(&ProductModel{})
}

// Get returns the active product with the given id. Inactive or absent
// products yield ErrNotFound; query failures yield ErrUnavailable.
func (s *GormStore) Get(ctx context.Context, id int64) (product.Product, error) {
	var model ProductModel
	result := s.db.Session(ctx).Where("id = ? AND activo = ?", id, true).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return product.Product{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return product.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	return model.toDomain(), nil
}

// Put inserts or updates a catalog row. Used by tests and local
// seeding; the production catalog is written by the upstream system.
func (s *GormStore) Put(ctx context.Context, p product.Product) error {
	model := ProductModel{
		ID:           p.ID,
		ParentID:     p.ParentID,
		Active:       p.Active,
		Name:         p.Name,
		Description:  p.Description,
		VariantCombo: p.VariantCombo,
	}
	if err := s.db.Session(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
