package models

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	SKU          string                `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name         string                `gorm:"type:varchar(200);not null"`
	Description  string                `gorm:"type:text"`
	SellingPrice decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Currency     string                `gorm:"type:varchar(3);not null;default:'USD'"`
	StockCount   int64                 `gorm:"not null;default:0"`
	Status       catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		SKU:          m.SKU,
		Name:         m.Name,
		Description:  m.Description,
		SellingPrice: moneyFromColumns(m.SellingPrice, m.Currency),
		StockCount:   m.StockCount,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Description = p.Description
	m.SellingPrice = p.SellingPrice.Amount()
	m.Currency = string(p.SellingPrice.Currency())
	m.StockCount = p.StockCount
	m.Status = p.Status
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// moneyFromColumns rebuilds a Money value from separate amount and currency
// columns. An empty currency column falls back to the storefront default.
func moneyFromColumns(amount decimal.Decimal, currency string) valueobject.Money {
	cur := valueobject.Currency(currency)
	if cur == "" {
		cur = valueobject.DefaultCurrency
	}
	m, _ := valueobject.NewMoney(amount, cur)
	return m
}
