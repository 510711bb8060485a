// Package jobs runs the background cron work: the daily low-stock scan
// that reminds pharmacies about depleted inventory, and the purge of
// expired refresh tokens.
package jobs

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
)

// Scheduler owns the cron runner and its registered jobs.
type Scheduler struct {
	cron *cron.Cron
	db   *gorm.DB
	hub  realtime.Publisher
	log  *logrus.Logger
}

// NewScheduler creates a Scheduler. Jobs are registered by Start.
func NewScheduler(db *gorm.DB, hub realtime.Publisher, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		db:   db,
		hub:  hub,
		log:  log,
	}
}

// Start registers the jobs under their cron specs and starts the runner.
func (s *Scheduler) Start(lowStockSpec, tokenPurgeSpec string) error {
	if _, err := s.cron.AddFunc(lowStockSpec, s.LowStockScan); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(tokenPurgeSpec, s.PurgeExpiredTokens); err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"low_stock_spec":   lowStockSpec,
		"token_purge_spec": tokenPurgeSpec,
	}).Info("cron scheduler started")
	return nil
}

// Stop halts the runner and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("cron scheduler stopped")
}

// LowStockScan notifies each pharmacy that still has items at or below
// their restock threshold. Order-driven low-stock alerts fire immediately
// on delivery; this scan is the daily reminder for anything left
// unrestocked.
func (s *Scheduler) LowStockScan() {
	var medicines []models.Medicine
	if err := s.db.Where("stock <= min_stock").Find(&medicines).Error; err != nil {
		s.log.WithError(err).Error("low-stock scan query failed")
		return
	}
	if len(medicines) == 0 {
		return
	}

	byPharmacy := make(map[string][]models.Medicine)
	for _, m := range medicines {
		byPharmacy[m.PharmacyID] = append(byPharmacy[m.PharmacyID], m)
	}

	for pharmacyID, items := range byPharmacy {
		body := "Items needing restock: "
		for i, item := range items {
			if i > 0 {
				body += ", "
			}
			body += item.Name + " (" + strconv.Itoa(item.Stock) + " left)"
		}

		notification := models.Notification{
			RecipientID: pharmacyID,
			Title:       "Low stock report",
			Body:        body,
			Type:        models.NotificationLowStock,
		}
		if err := s.db.Create(&notification).Error; err != nil {
			s.log.WithFields(logrus.Fields{
				"pharmacy_id": pharmacyID,
			}).WithError(err).Error("failed to create low-stock notification")
			continue
		}

		if payload, err := json.Marshal(notification); err == nil {
			s.hub.Publish(realtime.Event{
				Type:         realtime.EventCreated,
				Topic:        realtime.UserNotificationsTopic(pharmacyID),
				ResourceType: "Notification",
				ResourceID:   notification.ID,
				Timestamp:    time.Now(),
				Data:         payload,
			})
		}

		s.log.WithFields(logrus.Fields{
			"pharmacy_id": pharmacyID,
			"items":       len(items),
		}).Info("low-stock report sent")
	}
}

// PurgeExpiredTokens deletes refresh tokens that are expired or revoked.
func (s *Scheduler) PurgeExpiredTokens() {
	purged, err := models.PurgeStaleRefreshTokens(s.db, time.Now())
	if err != nil {
		s.log.WithError(err).Error("refresh token purge failed")
		return
	}
	if purged > 0 {
		s.log.WithFields(logrus.Fields{
			"purged": purged,
		}).Info("purged stale refresh tokens")
	}
}
