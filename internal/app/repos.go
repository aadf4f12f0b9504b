package app

import (
	"errors"

	"github.com/yungbote/vibecode-backend/internal/data/db"
	"github.com/yungbote/vibecode-backend/internal/data/repos/revisions"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

type Repos struct {
	DB *db.Service
	// Revisions is nil when the relational index is disabled or unreachable.
	Revisions *revisions.GormRepo
}

// wireRepos opens the relational index. The filesystem store stays
// authoritative, so a failed connection only disables the index.
func wireRepos(log *logger.Logger, cfg Config) Repos {
	log.Info("Wiring repos...")
	svc, err := db.Open(log, cfg.DB)
	switch {
	case errors.Is(err, db.ErrDisabled):
		log.Info("relational revision index disabled")
		return Repos{}
	case err != nil:
		log.Warn("relational revision index unavailable", "driver", cfg.DB.Driver, "error", err)
		return Repos{}
	}
	return Repos{DB: svc, Revisions: revisions.NewRepo(svc.DB(), log)}
}

func (r Repos) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
