package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/utils"
)

// UserHandler handles directory and admin account operations.
type UserHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
	notifier
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, hub realtime.Publisher, log *logrus.Logger) *UserHandler {
	return &UserHandler{
		DB:       db,
		Log:      log,
		notifier: notifier{db: db, hub: hub, log: log},
	}
}

// GetUsers lists accounts for the admin console. Supports ?role= and, for
// doctors, ?verified=true|false. The verified filter matches only accounts
// whose profile explicitly carries that flag, so a doctor with no profile
// row appears in neither bucket.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.Preload("DoctorProfile").Preload("PharmacyProfile").Preload("PatientProfile")

	if role := c.Query("role"); role != "" {
		if !models.ValidRole(role) {
			utils.BadRequest(c, "Unknown role: "+role)
			return
		}
		query = query.Where("role = ?", role)
	}

	if verified := c.Query("verified"); verified != "" {
		if verified != "true" && verified != "false" {
			utils.BadRequest(c, "verified must be true or false")
			return
		}
		query = query.Joins("JOIN doctor_profiles ON doctor_profiles.user_id = users.id").
			Where("users.role = ?", models.RoleDoctor).
			Where("doctor_profiles.verified = ?", verified == "true")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}

	utils.Success(c, "Users fetched successfully", sanitized)
}

// GetUserByID fetches a single account with its role profile (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.Preload("DoctorProfile").Preload("PharmacyProfile").Preload("PatientProfile").
		First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an
// admin. Role is deliberately absent: an account keeps the role it was
// registered with.
type UpdateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// UpdateUser updates an account's basic fields (admin). Requests that try
// to change the role are rejected outright rather than silently ignored.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if _, present := raw["role"]; present {
		utils.BadRequest(c, "Account role cannot be changed after registration")
		return
	}

	req := UpdateUserRequest{}
	if v, ok := raw["firstName"].(string); ok {
		req.FirstName = v
	}
	if v, ok := raw["lastName"].(string); ok {
		req.LastName = v
	}
	if v, ok := raw["email"].(string); ok {
		req.Email = v
	}
	if v, ok := raw["phoneNumber"].(string); ok {
		req.PhoneNumber = v
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Email != "" && req.Email != user.Email {
		var existing models.User
		if err := h.DB.Where("email = ? AND id != ?", req.Email, user.ID).First(&existing).Error; err == nil {
			utils.BadRequest(c, "New email is already in use")
			return
		} else if err != gorm.ErrRecordNotFound {
			utils.InternalServerError(c, "Database error checking email: "+err.Error())
			return
		}
		user.Email = req.Email
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser removes an account (admin).
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete user: "+err.Error())
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}

// ApproveDoctor flips a doctor's verification flag (admin). The doctor is
// told immediately so they know they are now bookable.
func (h *UserHandler) ApproveDoctor(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.Preload("DoctorProfile").First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if user.Role != models.RoleDoctor || user.DoctorProfile == nil {
		utils.BadRequest(c, "Account is not a doctor")
		return
	}
	if user.DoctorProfile.Verified {
		utils.Success(c, "Doctor is already verified", user.Sanitize())
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DoctorProfile{}).
			Where("user_id = ?", user.ID).
			Update("verified", true).Error; err != nil {
			return err
		}
		return h.send(tx, models.Notification{
			RecipientID:     user.ID,
			Title:           "Account verified",
			Body:            "Your medical license has been reviewed and approved. Patients can now book appointments with you.",
			Type:            models.NotificationDoctorApproved,
			RelatedRecordID: user.ID,
		})
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to approve doctor: "+err.Error())
		return
	}

	adminID, _ := middleware.GetUserIDFromContext(c)
	h.Log.WithFields(logrus.Fields{
		"doctor_id": user.ID,
		"admin_id":  adminID,
	}).Info("doctor account verified")

	user.DoctorProfile.Verified = true
	utils.Success(c, "Doctor approved successfully", user.Sanitize())
}

// GetDoctors lists the bookable doctor directory: verified accounts only.
// Unverified doctors stay invisible to patients until an admin approves
// them.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	query := h.DB.Preload("DoctorProfile").
		Joins("JOIN doctor_profiles ON doctor_profiles.user_id = users.id").
		Where("users.role = ?", models.RoleDoctor).
		Where("doctor_profiles.verified = ?", true)

	if spec := c.Query("specialization"); spec != "" {
		query = query.Where("doctor_profiles.specialization = ?", spec)
	}

	var doctors []models.User
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(doctors))
	for i, doctor := range doctors {
		sanitized[i] = doctor.Sanitize()
	}

	utils.Success(c, "Doctors fetched successfully", sanitized)
}

// GetPharmacies lists pharmacy accounts so patients can pick where to
// order from.
func (h *UserHandler) GetPharmacies(c *gin.Context) {
	var pharmacies []models.User
	if err := h.DB.Preload("PharmacyProfile").
		Where("role = ?", models.RolePharmacy).
		Find(&pharmacies).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch pharmacies: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(pharmacies))
	for i, pharmacy := range pharmacies {
		sanitized[i] = pharmacy.Sanitize()
	}

	utils.Success(c, "Pharmacies fetched successfully", sanitized)
}

// GetDoctorPatients lists patient accounts for doctors and admins.
func (h *UserHandler) GetDoctorPatients(c *gin.Context) {
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleDoctor && userRole != models.RoleAdmin {
		utils.Forbidden(c, "Only doctors and admins can view patient lists")
		return
	}

	var patients []models.User
	if err := h.DB.Preload("PatientProfile").
		Where("role = ?", models.RolePatient).
		Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(patients))
	for i, patient := range patients {
		sanitized[i] = patient.Sanitize()
	}

	utils.Success(c, "Patients fetched successfully", sanitized)
}
