package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentReceived  AppointmentStatus = "received"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment represents a booking between one patient and one doctor.
// Date is stored as YYYY-MM-DD and TimeSlot as the 12-hour string the
// patient picked (e.g. "2:30 PM"); both are normalized for comparison,
// never for storage. Cancelled and completed appointments are immutable
// except for Notes.
type Appointment struct {
	BaseModel
	PatientID          string            `gorm:"size:36;index" json:"patientId"`
	DoctorID           string            `gorm:"size:36;index" json:"doctorId"`
	Date               string            `gorm:"size:10;not null" json:"date"`
	TimeSlot           string            `gorm:"size:10;not null" json:"timeSlot"`
	Reason             string            `gorm:"size:255" json:"reason"`
	Status             AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	CancellationReason string            `gorm:"size:255" json:"cancellationReason,omitempty"`
	Notes              string            `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}
