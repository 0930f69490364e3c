package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ze-club/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLedgerPage = 50
	MaxLedgerPage     = 200
	ssePollInterval   = 2 * time.Second
	sseKeepAlive      = 15 * time.Second
)

// ListLedgerEntries returns the member's most recent balance movements.
func (s *LedgerService) ListLedgerEntries(ctx context.Context, memberID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultLedgerPage
	}
	if limit > MaxLedgerPage {
		limit = MaxLedgerPage
	}
	var entries []models.LedgerEntry
	err := s.DB.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ledgerSince returns entries strictly newer than the cursor, oldest first.
func (s *LedgerService) ledgerSince(ctx context.Context, memberID string, cursor time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.DB.WithContext(ctx).
		Where("member_id = ? AND created_at > ?", memberID, cursor).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (s *LedgerService) latestLedgerTime(ctx context.Context, memberID string) (time.Time, error) {
	var latest models.LedgerEntry
	err := s.DB.WithContext(ctx).Where("member_id = ?", memberID).Order("created_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	return latest.CreatedAt, err
}

func writeLedgerEvents(w *bufio.Writer, entries []models.LedgerEntry) error {
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %s\nevent: ledger\ndata: %s\n\n", e.ID, payload); err != nil {
			return err
		}
	}
	return w.Flush()
}

// StreamLedgerSSE pushes the member's new ledger entries as server-sent events.
func (s *LedgerService) StreamLedgerSSE(c *fiber.Ctx, memberID string) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	done := c.Context().Done()
	log := s.Log.With(zap.String("member_id", memberID))

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cursor, err := s.latestLedgerTime(ctx, memberID)
		if err != nil {
			log.Warn("sse cursor init failed", zap.Error(err))
		}

		if _, err := w.WriteString(": connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		poll := time.NewTicker(ssePollInterval)
		defer poll.Stop()
		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-poll.C:
				entries, err := s.ledgerSince(ctx, memberID, cursor)
				if err != nil {
					log.Warn("sse query failed", zap.Error(err))
					continue
				}
				if len(entries) == 0 {
					continue
				}
				cursor = entries[len(entries)-1].CreatedAt
				if err := writeLedgerEvents(w, entries); err != nil {
					// client went away
					return
				}
			case <-keepAlive.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}
