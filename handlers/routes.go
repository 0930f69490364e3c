package handlers

import (
	"reflect"
	"time"

	"ze-club/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps are the services the HTTP layer is wired to.
type Deps struct {
	DB            *gorm.DB
	Verifier      services.SessionVerifier
	Members       *services.MemberService
	Ledger        *services.LedgerService
	Missions      *services.MissionService
	Rewards       *services.RewardService
	Events        *services.EventService
	Announcements *services.AnnouncementService
	Settings      *services.SiteSettingsService
	Badges        *services.BadgeService
}

// RegisterParsers teaches fiber's form decoder RFC3339 timestamps.
func RegisterParsers() {
	fiber.SetParserDecoder(fiber.ParserConfig{
		IgnoreUnknownKeys: true,
		ZeroEmpty:         true,
		ParserType: []fiber.ParserType{{
			Customtype: time.Time{},
			Converter: func(v string) reflect.Value {
				if t, err := time.Parse(time.RFC3339, v); err == nil {
					return reflect.ValueOf(t)
				}
				return reflect.Value{}
			},
		}},
	})
}

func SetupHealthRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
