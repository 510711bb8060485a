package models

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken is a stored refresh credential. A token stays usable until
// it expires or is revoked, whichever comes first.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// RevokeUserRefreshTokens revokes every active refresh token belonging to a
// user, forcing a fresh login on the next request.
func RevokeUserRefreshTokens(db *gorm.DB, userID string) error {
	return db.Model(&RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
}

// PurgeStaleRefreshTokens deletes tokens that are expired or revoked as of
// now and reports how many rows were removed.
func PurgeStaleRefreshTokens(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at < ? OR is_revoked = ?", now, true).
		Delete(&RefreshToken{})
	return result.RowsAffected, result.Error
}
