package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/lifecycle"
	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
	notifier
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, hub realtime.Publisher, log *logrus.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		DB:       db,
		Log:      log,
		notifier: notifier{db: db, hub: hub, log: log},
	}
}

// CreateAppointmentRequest represents the request body for booking an
// appointment. Date is YYYY-MM-DD; timeSlot is a 12-hour clock string.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required,uuid"`
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// CreateAppointment books an appointment for the authenticated patient with
// a verified doctor. New appointments always start pending.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Patient ID not found in token")
		return
	}

	if !lifecycle.ValidDate(req.Date) {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}
	if _, err := lifecycle.NormalizeTime(req.TimeSlot); err != nil {
		utils.BadRequest(c, "Invalid time slot: "+err.Error())
		return
	}
	if !lifecycle.Upcoming(models.AppointmentPending, req.Date, req.TimeSlot, time.Now()) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}

	// Verify doctor exists, is a doctor, and has been approved
	var doctor models.User
	if err := h.DB.Preload("DoctorProfile").
		Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}
	if !doctor.IsVerifiedDoctor() {
		utils.BadRequest(c, "This doctor has not yet been approved for bookings")
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", patientID, models.RolePatient).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	appointment := models.Appointment{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Reason:    req.Reason,
		Status:    models.AppointmentPending,
	}

	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	_ = h.send(nil, models.Notification{
		RecipientID:     req.DoctorID,
		Title:           "New appointment request",
		Body:            patient.DisplayName() + " requested an appointment on " + req.Date + " at " + req.TimeSlot + ".",
		Type:            models.NotificationNewAppointment,
		RelatedRecordID: appointment.ID,
	})
	h.publish(realtime.UserAppointmentsTopic(patientID), realtime.EventCreated, "Appointment", appointment.ID, appointment)
	h.publish(realtime.UserAppointmentsTopic(req.DoctorID), realtime.EventCreated, "Appointment", appointment.ID, appointment)

	utils.Created(c, "Appointment created successfully", appointment)
}

// AppointmentListItem decorates an appointment with its upcoming/past
// classification for list views.
type AppointmentListItem struct {
	models.Appointment
	Upcoming bool `json:"upcoming"`
}

// GetAppointmentsForUser fetches appointments for the logged-in user.
// Patients see their bookings, doctors their schedule, admins everything.
// scope=upcoming|past filters by classification.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointments []models.Appointment
	query := h.DB.Preload("Patient").Preload("Doctor").Order("date asc, time_slot asc")

	var err error
	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	now := time.Now()
	scope := c.Query("scope")
	items := make([]AppointmentListItem, 0, len(appointments))
	for _, a := range appointments {
		upcoming := lifecycle.Upcoming(a.Status, a.Date, a.TimeSlot, now)
		if scope == "upcoming" && !upcoming {
			continue
		}
		if scope == "past" && upcoming {
			continue
		}
		items = append(items, AppointmentListItem{Appointment: a, Upcoming: upcoming})
	}

	utils.Success(c, "Appointments fetched successfully", items)
}

// GetAppointmentByID fetches a single appointment. Accessible by the
// involved patient, the involved doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole != models.RoleAdmin && userID != appointment.PatientID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for a status
// transition. Reason is required for cancellations.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending received completed cancelled"`
	Reason string                   `json:"reason"`
}

// UpdateAppointmentStatus drives the appointment state machine. The write
// is guarded on the status read beforehand, so a racing transition comes
// back as a conflict instead of silently overwriting.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	// Only the two involved parties drive appointment transitions.
	var actor models.Role
	switch {
	case userRole == models.RolePatient && userID == appointment.PatientID:
		actor = models.RolePatient
	case userRole == models.RoleDoctor && userID == appointment.DoctorID:
		actor = models.RoleDoctor
	default:
		utils.Forbidden(c, "You are not authorized to update this appointment's status.")
		return
	}

	transition, err := lifecycle.AppointmentTransitionFor(appointment.Status, req.Status, actor)
	if err != nil {
		utils.BadRequest(c, "Cannot move appointment from '"+string(appointment.Status)+"' to '"+string(req.Status)+"'")
		return
	}
	if transition.RecordsReason && req.Reason == "" {
		utils.BadRequest(c, "A cancellation reason is required")
		return
	}

	updates := map[string]interface{}{"status": transition.To}
	if transition.RecordsReason {
		updates["cancellation_reason"] = req.Reason
	}

	// Guarded write: commits only if the status is still what we read.
	result := h.DB.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", appointment.ID, transition.From).
		Updates(updates)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to update appointment status: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		h.Log.WithFields(logrus.Fields{
			"appointment": appointment.ID,
			"from":        transition.From,
			"to":          transition.To,
			"actor":       actor,
		}).Warn("appointment transition lost race")
		utils.Conflict(c, lifecycle.ErrConflictingTransition.Error())
		return
	}

	appointment.Status = transition.To
	if transition.RecordsReason {
		appointment.CancellationReason = req.Reason
	}

	if target := transition.NotifyTarget(actor, appointment.PatientID, appointment.DoctorID); target != "" {
		body := "Your appointment on " + appointment.Date + " at " + appointment.TimeSlot + " is now " + string(transition.To) + "."
		if transition.RecordsReason {
			body += " Reason: " + req.Reason
		}
		_ = h.send(nil, models.Notification{
			RecipientID:     target,
			Title:           "Appointment " + string(transition.To),
			Body:            body,
			Type:            transition.Notification,
			RelatedRecordID: appointment.ID,
		})
	}
	h.publish(realtime.UserAppointmentsTopic(appointment.PatientID), realtime.EventUpdated, "Appointment", appointment.ID, appointment)
	h.publish(realtime.UserAppointmentsTopic(appointment.DoctorID), realtime.EventUpdated, "Appointment", appointment.ID, appointment)

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// UpdateAppointmentNotesRequest represents the request body for updating
// notes on an appointment.
type UpdateAppointmentNotesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// UpdateAppointmentNotes lets the doctor write notes. Notes are the one
// field that stays mutable after an appointment reaches a terminal status.
func (h *AppointmentHandler) UpdateAppointmentNotes(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdateAppointmentNotesRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	if userID != appointment.DoctorID {
		utils.Forbidden(c, "Only the appointment's doctor can update notes.")
		return
	}

	if err := h.DB.Model(&appointment).Update("notes", req.Notes).Error; err != nil {
		utils.InternalServerError(c, "Failed to update notes: "+err.Error())
		return
	}
	appointment.Notes = req.Notes

	utils.Success(c, "Appointment notes updated successfully", appointment)
}
