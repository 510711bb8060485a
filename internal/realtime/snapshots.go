package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"careconnect-server/internal/models"
)

// StoreSnapshots loads the current result set behind a topic from the
// database so newly subscribed clients start from live data.
type StoreSnapshots struct {
	db *gorm.DB
}

// NewStoreSnapshots builds a SnapshotLoader over the given database.
func NewStoreSnapshots(db *gorm.DB) *StoreSnapshots {
	return &StoreSnapshots{db: db}
}

// Snapshot resolves a topic name to its backing query and returns the
// records as a JSON array. Zero matches yield an empty array.
func (s *StoreSnapshots) Snapshot(topic string) (json.RawMessage, error) {
	switch {
	case strings.HasPrefix(topic, "user/"):
		rest := strings.TrimPrefix(topic, "user/")
		userID, resource, ok := strings.Cut(rest, "/")
		if !ok {
			return nil, fmt.Errorf("malformed topic %q", topic)
		}
		switch resource {
		case "appointments":
			records := []models.Appointment{}
			if err := s.db.Where("patient_id = ? OR doctor_id = ?", userID, userID).
				Order("date asc, time_slot asc").Find(&records).Error; err != nil {
				return nil, err
			}
			return json.Marshal(records)
		case "orders":
			records := []models.Order{}
			if err := s.db.Preload("Items").
				Where("patient_id = ? OR pharmacy_id = ?", userID, userID).
				Order("created_at desc").Find(&records).Error; err != nil {
				return nil, err
			}
			return json.Marshal(records)
		case "notifications":
			records := []models.Notification{}
			if err := s.db.Where("recipient_id = ?", userID).
				Order("created_at desc").Find(&records).Error; err != nil {
				return nil, err
			}
			return json.Marshal(records)
		}
		return nil, fmt.Errorf("unknown resource %q in topic %q", resource, topic)
	case strings.HasPrefix(topic, "conversation/"):
		conversationID := strings.TrimPrefix(topic, "conversation/")
		records := []models.Message{}
		if err := s.db.Where("conversation_id = ?", conversationID).
			Order("created_at asc").Find(&records).Error; err != nil {
			return nil, err
		}
		return json.Marshal(records)
	case strings.HasPrefix(topic, "pharmacy/"):
		rest := strings.TrimPrefix(topic, "pharmacy/")
		pharmacyID, resource, ok := strings.Cut(rest, "/")
		if !ok || resource != "inventory" {
			return nil, fmt.Errorf("malformed topic %q", topic)
		}
		records := []models.Medicine{}
		if err := s.db.Where("pharmacy_id = ?", pharmacyID).
			Order("name asc").Find(&records).Error; err != nil {
			return nil, err
		}
		return json.Marshal(records)
	}
	return nil, fmt.Errorf("unknown topic %q", topic)
}
