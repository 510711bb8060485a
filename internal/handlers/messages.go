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

// MessageHandler handles in-app chat requests.
type MessageHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
	notifier
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB, hub realtime.Publisher, log *logrus.Logger) *MessageHandler {
	return &MessageHandler{
		DB:       db,
		Log:      log,
		notifier: notifier{db: db, hub: hub, log: log},
	}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	RecipientID  string `json:"recipientId" binding:"required,uuid"`
	Content      string `json:"content" binding:"required"`
	AttachmentID string `json:"attachmentId"`
}

// canMessage reports whether the roles on either end of a conversation may
// exchange messages. Patients talk to doctors and pharmacies; anyone may
// talk to an admin.
func canMessage(senderRole, recipientRole models.Role) bool {
	if senderRole == models.RoleAdmin || recipientRole == models.RoleAdmin {
		return true
	}
	switch senderRole {
	case models.RolePatient:
		return recipientRole == models.RoleDoctor || recipientRole == models.RolePharmacy
	case models.RoleDoctor, models.RolePharmacy:
		return recipientRole == models.RolePatient
	}
	return false
}

// SendMessage creates a message inside the conversation derived from the
// two participant IDs and pushes it to live subscribers of that
// conversation's topic.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	senderID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Sender ID not found in token")
		return
	}
	if senderID == req.RecipientID {
		utils.BadRequest(c, "Cannot send a message to yourself.")
		return
	}

	var recipient models.User
	if err := h.DB.First(&recipient, "id = ?", req.RecipientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Recipient user not found")
		} else {
			utils.InternalServerError(c, "Database error verifying recipient: "+err.Error())
		}
		return
	}

	senderRole, _ := middleware.GetUserRoleFromContext(c)
	if !canMessage(senderRole, recipient.Role) {
		utils.Forbidden(c, "You are not authorized to send a message to this user.")
		return
	}

	if req.AttachmentID != "" {
		var attachment models.Attachment
		if err := h.DB.First(&attachment, "id = ?", req.AttachmentID).Error; err != nil {
			utils.BadRequest(c, "Attachment not found")
			return
		}
		if attachment.OwnerID != senderID {
			utils.Forbidden(c, "You do not own this attachment.")
			return
		}
	}

	message := models.Message{
		ConversationID: models.ConversationID(senderID, req.RecipientID),
		SenderID:       senderID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		AttachmentID:   req.AttachmentID,
	}

	if err := h.DB.Create(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to send message: "+err.Error())
		return
	}

	h.publish(realtime.ConversationTopic(message.ConversationID), realtime.EventCreated, "Message", message.ID, message)
	utils.Created(c, "Message sent successfully", message)
}

// GetConversation returns all messages exchanged with another user, oldest
// first, and marks incoming ones as read in the same pass.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	partnerID := c.Param("userId")
	if partnerID == "" || partnerID == userID {
		utils.BadRequest(c, "Invalid conversation partner")
		return
	}

	conversationID := models.ConversationID(userID, partnerID)

	var messages []models.Message
	if err := h.DB.Where("conversation_id = ?", conversationID).
		Order("created_at asc").Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	now := time.Now()
	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND `read` = ?", conversationID, userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error; err != nil {
		h.Log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"user_id":         userID,
		}).WithError(err).Warn("failed to mark conversation as read")
	}
	for i := range messages {
		if messages[i].RecipientID == userID && !messages[i].Read {
			messages[i].Read = true
			messages[i].ReadAt = &now
		}
	}

	utils.Success(c, "Messages fetched successfully", messages)
}

// ConversationPreview is one row in the user's inbox: the other party, the
// most recent message, and how many inbound messages are unread.
type ConversationPreview struct {
	Partner     models.UserSanitized `json:"partner"`
	LastMessage models.Message       `json:"lastMessage"`
	UnreadCount int64                `json:"unreadCount"`
}

// GetConversations lists the user's conversations, most recently active
// first.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var partnerIDs []string
	err := h.DB.Raw(`
		SELECT DISTINCT partner_id FROM (
			SELECT recipient_id AS partner_id FROM messages WHERE sender_id = ?
			UNION
			SELECT sender_id AS partner_id FROM messages WHERE recipient_id = ?
		) AS partners
	`, userID, userID).Scan(&partnerIDs).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch conversation partners: "+err.Error())
		return
	}

	previews := make([]ConversationPreview, 0, len(partnerIDs))
	for _, partnerID := range partnerIDs {
		var partner models.User
		if err := h.DB.First(&partner, "id = ?", partnerID).Error; err != nil {
			continue
		}

		conversationID := models.ConversationID(userID, partnerID)

		var lastMessage models.Message
		if err := h.DB.Where("conversation_id = ?", conversationID).
			Order("created_at desc").First(&lastMessage).Error; err != nil {
			continue
		}

		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND recipient_id = ? AND `read` = ?", conversationID, userID, false).
			Count(&unreadCount)

		previews = append(previews, ConversationPreview{
			Partner:     partner.Sanitize(),
			LastMessage: lastMessage,
			UnreadCount: unreadCount,
		})
	}

	// Newest conversation first.
	for i := 0; i < len(previews); i++ {
		for j := i + 1; j < len(previews); j++ {
			if previews[j].LastMessage.CreatedAt.After(previews[i].LastMessage.CreatedAt) {
				previews[i], previews[j] = previews[j], previews[i]
			}
		}
	}

	utils.Success(c, "Conversations fetched successfully", previews)
}

// MarkMessageAsRead marks one message as read. Only the recipient may do
// this.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	messageID := c.Param("messageId")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var message models.Message
	if err := h.DB.First(&message, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Message not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if message.RecipientID != userID {
		utils.Forbidden(c, "You are not authorized to mark this message as read.")
		return
	}

	if message.Read {
		utils.Success(c, "Message already marked as read", message)
		return
	}

	now := time.Now()
	message.Read = true
	message.ReadAt = &now
	if err := h.DB.Save(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to update message status: "+err.Error())
		return
	}

	h.publish(realtime.ConversationTopic(message.ConversationID), realtime.EventUpdated, "Message", message.ID, message)
	utils.Success(c, "Message marked as read successfully", message)
}
