package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/utils"
)

// NotificationHandler handles notification feed requests.
type NotificationHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
	notifier
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB, hub realtime.Publisher, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		DB:       db,
		Log:      log,
		notifier: notifier{db: db, hub: hub, log: log},
	}
}

// GetNotifications returns the user's own notifications, newest first.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Where("recipient_id = ?", userID).Order("created_at desc")
	if c.Query("unread") == "true" {
		query = query.Where("`read` = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications: "+err.Error())
		return
	}

	utils.Success(c, "Notifications fetched successfully", notifications)
}

// GetUnreadCount returns how many of the user's notifications are unread.
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var count int64
	if err := h.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND `read` = ?", userID, false).
		Count(&count).Error; err != nil {
		utils.InternalServerError(c, "Failed to count notifications: "+err.Error())
		return
	}

	utils.Success(c, "Unread count fetched successfully", gin.H{"count": count})
}

// MarkNotificationAsRead flips one notification's read flag. Only the
// recipient may do this.
func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	notificationID := c.Param("id")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var notification models.Notification
	if err := h.DB.First(&notification, "id = ?", notificationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Notification not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if notification.RecipientID != userID {
		utils.Forbidden(c, "You are not authorized to update this notification.")
		return
	}

	if notification.Read {
		utils.Success(c, "Notification already marked as read", notification)
		return
	}

	now := time.Now()
	notification.Read = true
	notification.ReadAt = &now
	if err := h.DB.Save(&notification).Error; err != nil {
		utils.InternalServerError(c, "Failed to update notification: "+err.Error())
		return
	}

	h.publish(realtime.UserNotificationsTopic(userID), realtime.EventUpdated, "Notification", notification.ID, notification)
	utils.Success(c, "Notification marked as read", notification)
}

// MarkAllNotificationsAsRead flips every unread notification for the user.
func (h *NotificationHandler) MarkAllNotificationsAsRead(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	now := time.Now()
	result := h.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND `read` = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to update notifications: "+result.Error.Error())
		return
	}

	h.publish(realtime.UserNotificationsTopic(userID), realtime.EventUpdated, "Notification", "", gin.H{"markedRead": result.RowsAffected})
	utils.Success(c, "All notifications marked as read", gin.H{"markedRead": result.RowsAffected})
}
