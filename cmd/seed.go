package cmd

import (
	"fmt"

	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/copenhagensales/sms-inbox-notifier/internal/db"
	"github.com/copenhagensales/sms-inbox-notifier/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo candidates and applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.Init(cfg.LogLevel)

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Info("seeding demo candidates")
		if err := seedCandidates(sqlDB); err != nil {
			return err
		}

		log.Info("seed completed", zap.Int("candidates", len(demoCandidates)))
		return nil
	},
}

type demoCandidate struct {
	ID            int64
	FirstName     string
	LastName      string
	Phone         string
	ApplicationID int64
}

var demoCandidates = []demoCandidate{
	{ID: 1, FirstName: "Anna", LastName: "Jensen", Phone: "+4520112233", ApplicationID: 101},
	{ID: 2, FirstName: "Mads", LastName: "Nielsen", Phone: "+4530445566", ApplicationID: 102},
	{ID: 3, FirstName: "Sofie", LastName: "Hansen", Phone: "+4540778899", ApplicationID: 103},
	{ID: 4, FirstName: "Jonas", LastName: "Pedersen", Phone: "+4550001122", ApplicationID: 104},
}

// seedCandidates upserts demo candidates, each with one application, plus one
// orphan application (105) whose SMS must never produce a toast.
func seedCandidates(dbx *sqlx.DB) error {
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range demoCandidates {
		if _, err := tx.Exec(`
INSERT INTO candidates (id, first_name, last_name, phone)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE first_name = VALUES(first_name), last_name = VALUES(last_name), phone = VALUES(phone)
`, c.ID, c.FirstName, c.LastName, c.Phone); err != nil {
			return fmt.Errorf("insert candidate %d: %w", c.ID, err)
		}
		if _, err := tx.Exec(`
INSERT INTO applications (id, candidate_id, role)
VALUES (?, ?, 'salgskonsulent')
ON DUPLICATE KEY UPDATE candidate_id = VALUES(candidate_id)
`, c.ApplicationID, c.ID); err != nil {
			return fmt.Errorf("insert application %d: %w", c.ApplicationID, err)
		}
	}

	if _, err := tx.Exec(`
INSERT INTO applications (id, candidate_id, role)
VALUES (105, NULL, 'salgskonsulent')
ON DUPLICATE KEY UPDATE candidate_id = NULL
`); err != nil {
		return fmt.Errorf("insert orphan application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
