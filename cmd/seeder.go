package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo company and one user per role for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initGorm(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"approvals", "receipts", "expenses", "users", "companies"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		companyID := seedCompany(db, "Acme Corp", "US", "USD")

		adminID := seedUser(db, companyID, "admin@acme.test", "Ada Admin", "admin", string(hash), nil)
		managerID := seedUser(db, companyID, "manager@acme.test", "Morgan Manager", "manager", string(hash), nil)
		seedUser(db, companyID, "finance@acme.test", "Finley Finance", "finance", string(hash), nil)
		seedUser(db, companyID, "employee@acme.test", "Emery Employee", "employee", string(hash), &managerID)

		fmt.Printf("Seeded company %d with admin user id %d (password: %s)\n", companyID, adminID, password)
	},
}

func seedCompany(db *gorm.DB, name, country, currency string) int64 {
	var id int64
	row := db.Raw("SELECT id FROM companies WHERE name = ?", name).Row()
	if err := row.Scan(&id); err == nil {
		fmt.Println("company already exists:", name)
		return id
	}

	err := db.Raw(`INSERT INTO companies (name, country, currency, approval_mode, auto_approval_limit, receipt_threshold, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 'multi_step', 100, 500, true, now(), now()) RETURNING id`,
		name, country, currency).Row().Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert company %s: %v", name, err)
	}

	fmt.Println("Seeded company:", name)
	return id
}

func seedUser(db *gorm.DB, companyID int64, email, name, role, passwordHash string, managerID *int64) int64 {
	var id int64
	row := db.Raw("SELECT id FROM users WHERE email = ?", email).Row()
	if err := row.Scan(&id); err == nil {
		fmt.Println("user already exists:", email)
		return id
	}

	err := db.Raw(`INSERT INTO users (company_id, email, name, role, manager_id, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, true, now(), now()) RETURNING id`,
		companyID, email, name, role, managerID, passwordHash).Row().Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}

	fmt.Println("Seeded user:", email, "role:", role)
	return id
}
