package models

import (
	"strings"
	"time"
)

// Message is one unit of a two-party conversation. ConversationID is
// derived from the participant pair, not stored state, so either side
// resolves the same thread.
type Message struct {
	BaseModel
	ConversationID string     `gorm:"size:100;index" json:"conversationId"`
	SenderID       string     `gorm:"size:36;index" json:"senderId"`
	RecipientID    string     `gorm:"size:36;index" json:"recipientId"`
	Content        string     `gorm:"type:text" json:"content"`
	AttachmentID   string     `gorm:"size:36" json:"attachmentId,omitempty"`
	Read           bool       `gorm:"default:false" json:"read"`
	ReadAt         *time.Time `json:"readAt,omitempty"`

	// Relations
	Sender    User `gorm:"foreignKey:SenderID" json:"sender"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient"`
}

// ConversationID derives the thread key for a participant pair: the two ids
// sorted lexicographically and joined with "_". Symmetric in its arguments,
// so both ends of the conversation compute the same key.
func ConversationID(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "_" + b
}
