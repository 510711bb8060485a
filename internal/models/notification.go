package models

import "time"

// NotificationType tags what kind of event produced a notification.
type NotificationType string

const (
	NotificationNewAppointment    NotificationType = "new_appointment"
	NotificationAppointmentUpdate NotificationType = "appointment_update"
	NotificationNewOrder          NotificationType = "new_order"
	NotificationOrderUpdate       NotificationType = "order_update"
	NotificationLowStock          NotificationType = "low_stock"
	NotificationDoctorApproved    NotificationType = "doctor_approved"
)

// Notification is a one-way, role-agnostic event record created as a side
// effect of a state transition. It is only ever mutated to flip the read
// flag.
type Notification struct {
	BaseModel
	RecipientID     string           `gorm:"size:36;index" json:"recipientId"`
	Title           string           `gorm:"size:255" json:"title"`
	Body            string           `gorm:"type:text" json:"body"`
	Type            NotificationType `gorm:"size:50" json:"type"`
	RelatedRecordID string           `gorm:"size:36" json:"relatedRecordId,omitempty"`
	Read            bool             `gorm:"default:false" json:"read"`
	ReadAt          *time.Time       `json:"readAt,omitempty"`

	// Relations
	Recipient User `gorm:"foreignKey:RecipientID" json:"-"`
}
