package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/copenhagensales/sms-inbox-notifier/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if _, err := sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 0"); err != nil {
			return fmt.Errorf("disable fk checks: %w", err)
		}
		if err := execFile(sqlDB, filepath.Join("migrations", "001_init.sql")); err != nil {
			_, _ = sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 1")
			return err
		}
		if _, err := sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			return fmt.Errorf("enable fk checks: %w", err)
		}

		if cfg.ClickHouse.Enabled {
			chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer chDB.Close()
			if err := execFile(chDB, filepath.Join("migrations", "clickhouse_001_notifications_log.sql")); err != nil {
				return err
			}
		}

		fmt.Println(">> Migration complete ✅")
		return nil
	},
}

// execFile runs each ;-terminated statement of a migration file; neither
// driver is configured for multi-statement execs.
func execFile(dbx *sqlx.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file %s: %w", path, err)
	}
	for _, stmt := range strings.Split(string(b), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := dbx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %s: %w", path, err)
		}
	}
	return nil
}
