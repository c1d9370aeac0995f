package repositories

import (
	"fmt"

	"telesignal/internal/core/ports"
	"telesignal/internal/infrastructure/repositories/gormdb"
	"telesignal/internal/infrastructure/repositories/memory"
	"telesignal/pkg/config"

	"go.uber.org/zap"
)

// Repositories bundles the store adapters selected by configuration.
type Repositories struct {
	Appointments ports.AppointmentRepository
	ChatMessages ports.ChatMessageRepository
}

// New selects the store backend from config. "memory" backs local
// development and tests; "mysql" is the production path.
func New(cfg *config.Config, logger *zap.SugaredLogger) (*Repositories, error) {
	switch cfg.Database.Driver {
	case "memory":
		return &Repositories{
			Appointments: memory.NewMemoryAppointmentRepository(),
			ChatMessages: memory.NewMemoryChatMessageRepository(),
		}, nil

	case "mysql":
		db, err := gormdb.NewClient(cfg.MySQLDSN(), logger)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Appointments: gormdb.NewGormAppointmentRepository(db),
			ChatMessages: gormdb.NewGormChatMessageRepository(db),
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
}
