package models

import "github.com/shopspring/decimal"

// Medicine is a pharmacy-owned catalog entry. Stock is decremented by the
// order-delivery side effect and never goes below zero.
type Medicine struct {
	BaseModel
	PharmacyID           string          `gorm:"size:36;index" json:"pharmacyId"`
	Name                 string          `gorm:"size:255;not null" json:"name"`
	Description          string          `gorm:"type:text" json:"description,omitempty"`
	Category             string          `gorm:"size:100" json:"category"`
	Price                decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Stock                int             `gorm:"default:0" json:"stock"`
	MinStock             int             `gorm:"default:0" json:"minStock"`
	PrescriptionRequired bool            `gorm:"default:false" json:"prescriptionRequired"`

	// Relations
	Pharmacy User `gorm:"foreignKey:PharmacyID" json:"-"`
}

// LowStock reports whether the item has fallen to or below its reorder
// threshold.
func (m *Medicine) LowStock() bool {
	return m.Stock <= m.MinStock
}
