package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with demo stores, contracts and attendances for development.`,
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

		if clearData {
			tables := []string{
				"contract_payment_periods",
				"click_transactions",
				"transactions",
				"attendances",
				"contracts",
				"stores",
				"users",
			}
			for _, table := range tables {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		operatorEmail := "kassir@bozor.uz"
		var exists int
		operatorExists := false
		if err := db.QueryRow("SELECT 1 FROM users WHERE email = $1", operatorEmail).Scan(&exists); err == nil {
			fmt.Println("operator user already exists")
			operatorExists = true
		}
		if !operatorExists {
			if _, err := db.Exec(
				"INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at) VALUES ($1, $2, $3, true, now(), now())",
				operatorEmail, "Kassir", string(hash)); err != nil {
				log.Fatalf("failed to insert operator user: %v", err)
			}
			fmt.Println("Seeded operator user:", operatorEmail)
		}

		stores := []struct {
			Number string
			Name   string
			Fee    string
		}{
			{"A-101", "Mevalar rastasi", "500000"},
			{"A-102", "Sabzavot rastasi", "450000"},
			{"B-201", "Gazlama do'koni", "700000"},
		}
		for _, store := range stores {
			var storeID int64
			err := db.QueryRow("SELECT id FROM stores WHERE store_number = $1", store.Number).Scan(&storeID)
			if err != nil {
				if err := db.QueryRow(
					"INSERT INTO stores (store_number, name, created_at) VALUES ($1, $2, now()) RETURNING id",
					store.Number, store.Name).Scan(&storeID); err != nil {
					log.Fatalf("failed to insert store %s: %v", store.Number, err)
				}
				fmt.Println("Seeded store:", store.Number)
			}

			var contractID int64
			err = db.QueryRow("SELECT id FROM contracts WHERE store_id = $1", storeID).Scan(&contractID)
			if err != nil {
				if _, err := db.Exec(
					"INSERT INTO contracts (store_id, is_active, shop_monthly_fee, issue_date, created_at) VALUES ($1, true, $2, now() - interval '6 months', now())",
					storeID, store.Fee); err != nil {
					log.Fatalf("failed to insert contract for %s: %v", store.Number, err)
				}
				fmt.Println("Seeded contract for store:", store.Number)
			}
		}

		var attendanceCount int
		if err := db.QueryRow("SELECT count(*) FROM attendances").Scan(&attendanceCount); err == nil && attendanceCount == 0 {
			for i := 0; i < 3; i++ {
				if _, err := db.Exec(
					"INSERT INTO attendances (amount, status, date, created_at) VALUES ($1, 'PENDING', current_date, now())",
					"15000"); err != nil {
					log.Fatalf("failed to insert attendance: %v", err)
				}
			}
			fmt.Println("Seeded 3 pending attendances for today")
		}

		fmt.Println("Seeding complete")
	},
}
