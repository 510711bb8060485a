package models

import "github.com/shopspring/decimal"

// OrderStatus represents the status of a medicine order
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out-for-delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// Delivery methods accepted at checkout.
const (
	DeliveryMethodPickup   = "pickup"
	DeliveryMethodDelivery = "delivery"
)

// Order is a medicine purchase between one patient and one pharmacy. Total
// is computed server-side at checkout and line item prices are snapshots of
// the catalog at order time, so later catalog edits never reprice a placed
// order.
type Order struct {
	BaseModel
	PatientID       string          `gorm:"size:36;index" json:"patientId"`
	PharmacyID      string          `gorm:"size:36;index" json:"pharmacyId"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	Total           decimal.Decimal `gorm:"type:decimal(10,2)" json:"total"`
	DeliveryMethod  string          `gorm:"size:20" json:"deliveryMethod"`
	DeliveryAddress string          `gorm:"size:255" json:"deliveryAddress,omitempty"`
	PaymentMethod   string          `gorm:"size:50" json:"paymentMethod"`
	Status          OrderStatus     `gorm:"size:20;default:'pending'" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient  User `gorm:"foreignKey:PatientID" json:"-"`
	Pharmacy User `gorm:"foreignKey:PharmacyID" json:"-"`
}

// OrderItem is one line of an order. MedicineName and Price are copied from
// the catalog entry when the order is placed.
type OrderItem struct {
	BaseModel
	OrderID      string          `gorm:"size:36;index" json:"orderId"`
	MedicineID   string          `gorm:"size:36;index" json:"medicineId"`
	MedicineName string          `gorm:"size:255" json:"medicineName"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
}

// Subtotal is price times quantity for this line.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
