package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDoctor   Role = "doctor"
	RolePatient  Role = "patient"
	RolePharmacy Role = "pharmacy"
)

// ValidRole reports whether s names one of the four account roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RolePatient, RolePharmacy:
		return true
	}
	return false
}

// User represents any registered account. Role is fixed at registration and
// never updated afterwards; role-specific fields live on the profile rows
// below so each role carries only its own required set.
type User struct {
	BaseModel
	Email            string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password         string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName        string     `gorm:"size:100" json:"firstName"`
	LastName         string     `gorm:"size:100" json:"lastName"`
	Role             Role       `gorm:"size:20;not null" json:"role"`
	PhoneNumber      string     `json:"phoneNumber,omitempty"`
	ProfileImageID   string     `gorm:"size:36" json:"profileImageId,omitempty"`
	ProfileComplete  bool       `gorm:"default:false" json:"profileComplete"`
	ResetToken       string     `gorm:"size:255" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	// Role profiles (at most one is set, matching Role)
	DoctorProfile   *DoctorProfile   `gorm:"foreignKey:UserID" json:"doctorProfile,omitempty"`
	PharmacyProfile *PharmacyProfile `gorm:"foreignKey:UserID" json:"pharmacyProfile,omitempty"`
	PatientProfile  *PatientProfile  `gorm:"foreignKey:UserID" json:"patientProfile,omitempty"`

	// Relations (not always preloaded)
	RefreshTokens       []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	DoctorAppointments  []Appointment  `gorm:"foreignKey:DoctorID" json:"-"`
	PatientAppointments []Appointment  `gorm:"foreignKey:PatientID" json:"-"`
	PatientOrders       []Order        `gorm:"foreignKey:PatientID" json:"-"`
	PharmacyOrders      []Order        `gorm:"foreignKey:PharmacyID" json:"-"`
	SentMessages        []Message      `gorm:"foreignKey:SenderID" json:"-"`
	Notifications       []Notification `gorm:"foreignKey:RecipientID" json:"-"`
}

// DoctorProfile holds the doctor-only fields. Verified starts false and is
// flipped by an admin account only.
type DoctorProfile struct {
	BaseModel
	UserID         string `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialization string `gorm:"size:100" json:"specialization"`
	LicenseNumber  string `gorm:"size:100" json:"licenseNumber"`
	Verified       bool   `gorm:"default:false" json:"verified"`
}

// PharmacyProfile holds the pharmacy-only fields.
type PharmacyProfile struct {
	BaseModel
	UserID       string `gorm:"size:36;uniqueIndex" json:"userId"`
	PharmacyName string `gorm:"size:255" json:"pharmacyName"`
	Address      string `gorm:"size:255" json:"address"`
}

// PatientProfile holds the patient-only fields.
type PatientProfile struct {
	BaseModel
	UserID      string     `gorm:"size:36;uniqueIndex" json:"userId"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Address     string     `gorm:"size:255" json:"address,omitempty"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	Role            Role             `json:"role"`
	PhoneNumber     string           `json:"phoneNumber,omitempty"`
	ProfileImageID  string           `json:"profileImageId,omitempty"`
	ProfileComplete bool             `json:"profileComplete"`
	DoctorProfile   *DoctorProfile   `json:"doctorProfile,omitempty"`
	PharmacyProfile *PharmacyProfile `json:"pharmacyProfile,omitempty"`
	PatientProfile  *PatientProfile  `json:"patientProfile,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsVerifiedDoctor reports whether the user is a doctor whose profile has
// been approved by an admin. Unset profiles count as unverified.
func (u *User) IsVerifiedDoctor() bool {
	return u.Role == RoleDoctor && u.DoctorProfile != nil && u.DoctorProfile.Verified
}

// DisplayName is the human-readable name used in notification bodies. For
// pharmacies the business name wins over the contact person's name.
func (u *User) DisplayName() string {
	if u.Role == RolePharmacy && u.PharmacyProfile != nil && u.PharmacyProfile.PharmacyName != "" {
		return u.PharmacyProfile.PharmacyName
	}
	return u.FirstName + " " + u.LastName
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		PhoneNumber:     u.PhoneNumber,
		ProfileImageID:  u.ProfileImageID,
		ProfileComplete: u.ProfileComplete,
		DoctorProfile:   u.DoctorProfile,
		PharmacyProfile: u.PharmacyProfile,
		PatientProfile:  u.PatientProfile,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
