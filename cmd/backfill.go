package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	billablepostgres "github.com/muzaffarov/bozor-billing/internal/billable/postgres"
	ledgerpostgres "github.com/muzaffarov/bozor-billing/internal/ledger/postgres"
	"github.com/muzaffarov/bozor-billing/internal/periods"
	periodspostgres "github.com/muzaffarov/bozor-billing/internal/periods/postgres"
	"github.com/muzaffarov/bozor-billing/pkg/logger"
)

// backfillCmd replays historical PAID transactions into payment
// periods for contracts created before the period table existed.
// Allocation is idempotent, so rerunning it is safe.
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill payment periods from historical transactions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		lg := logger.LoggerWrapper()
		periodsService := periods.NewService(
			periodspostgres.NewPeriodRepository(gormDB),
			billablepostgres.NewBillableRepository(gormDB),
			ledgerpostgres.NewTransactionRepository(gormDB),
			lg,
		)

		var contractIDs []int64
		if err := db.Select(&contractIDs, "SELECT id FROM contracts ORDER BY id"); err != nil {
			log.Fatalf("failed to list contracts: %v", err)
		}

		seeded := 0
		for _, contractID := range contractIDs {
			if err := periodsService.EnsureSeeded(contractID); err != nil {
				log.Fatalf("failed to backfill contract %d: %v", contractID, err)
			}
			seeded++
		}

		fmt.Printf("Backfill complete for %d contracts\n", seeded)
	},
}
