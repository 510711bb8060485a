package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/storage"
	"careconnect-server/internal/utils"
)

// AttachmentHandler handles file upload and download requests.
type AttachmentHandler struct {
	DB    *gorm.DB
	Blobs *storage.BlobStore
	Log   *logrus.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(db *gorm.DB, blobs *storage.BlobStore, log *logrus.Logger) *AttachmentHandler {
	return &AttachmentHandler{DB: db, Blobs: blobs, Log: log}
}

// UploadAttachment accepts a multipart file upload. The "purpose" form
// field selects the namespace (chat or profile); profile uploads also
// update the uploader's profile image reference.
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	purpose := c.PostForm("purpose")
	if purpose == "" {
		purpose = models.AttachmentPurposeChat
	}
	if purpose != models.AttachmentPurposeChat && purpose != models.AttachmentPurposeProfile {
		utils.BadRequest(c, "Unknown attachment purpose: "+purpose)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Missing file: "+err.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.InternalServerError(c, "Failed to read upload: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.InternalServerError(c, "Failed to read upload: "+err.Error())
		return
	}

	attachment, err := h.Blobs.Save(userID, purpose, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, storage.ErrBlobTooLarge) {
			utils.BadRequest(c, "File exceeds the maximum allowed size")
			return
		}
		utils.InternalServerError(c, "Failed to store attachment: "+err.Error())
		return
	}

	if purpose == models.AttachmentPurposeProfile {
		if err := h.DB.Model(&models.User{}).Where("id = ?", userID).
			Update("profile_image_id", attachment.ID).Error; err != nil {
			h.Log.WithFields(logrus.Fields{
				"user_id":       userID,
				"attachment_id": attachment.ID,
			}).WithError(err).Warn("failed to link profile image")
		}
	}

	// Echo everything except the blob bytes.
	utils.Created(c, "File uploaded successfully", gin.H{
		"id":       attachment.ID,
		"fileName": attachment.FileName,
		"fileType": attachment.FileType,
		"size":     attachment.Size,
		"purpose":  attachment.Purpose,
	})
}

// DownloadAttachment streams a stored blob. Chat attachments are readable
// by either conversation party; profile images are readable by any
// authenticated user.
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	attachmentID := c.Param("id")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	attachment, err := h.Blobs.Get(attachmentID)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			utils.NotFound(c, "Attachment not found")
		} else {
			utils.InternalServerError(c, "Failed to load attachment: "+err.Error())
		}
		return
	}

	if attachment.Purpose == models.AttachmentPurposeChat && attachment.OwnerID != userID {
		var count int64
		h.DB.Model(&models.Message{}).
			Where("attachment_id = ? AND (sender_id = ? OR recipient_id = ?)", attachment.ID, userID, userID).
			Count(&count)
		userRole, _ := middleware.GetUserRoleFromContext(c)
		if count == 0 && userRole != models.RoleAdmin {
			utils.Forbidden(c, "You are not authorized to download this attachment.")
			return
		}
	}

	c.Header("Content-Disposition", `inline; filename="`+attachment.FileName+`"`)
	contentType := attachment.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, attachment.Data)
}

// DeleteAttachment removes a blob. Only the owner or an admin may do this.
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	attachmentID := c.Param("id")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	attachment, err := h.Blobs.Get(attachmentID)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			utils.NotFound(c, "Attachment not found")
		} else {
			utils.InternalServerError(c, "Failed to load attachment: "+err.Error())
		}
		return
	}

	userRole, _ := middleware.GetUserRoleFromContext(c)
	if attachment.OwnerID != userID && userRole != models.RoleAdmin {
		utils.Forbidden(c, "You are not authorized to delete this attachment.")
		return
	}

	if err := h.Blobs.Delete(attachmentID); err != nil {
		utils.InternalServerError(c, "Failed to delete attachment: "+err.Error())
		return
	}

	utils.Success(c, "Attachment deleted successfully", nil)
}
