package models

// Attachment purposes; paths are namespaced by owner and purpose.
const (
	AttachmentPurposeChat    = "chat"
	AttachmentPurposeProfile = "profile"
)

// Attachment is a stored blob (chat file, profile photo). Content lives in
// the database as a longblob; callers address it by id and fetch it through
// the download endpoint.
type Attachment struct {
	BaseModel
	OwnerID  string `gorm:"size:36;index" json:"ownerId"`
	Purpose  string `gorm:"size:20;index" json:"purpose"`
	FileName string `gorm:"size:255;not null" json:"fileName"`
	FileType string `gorm:"size:100;not null" json:"fileType"` // MIME type
	Size     int64  `json:"size"`
	Data     []byte `gorm:"type:longblob;not null" json:"-"`
}
