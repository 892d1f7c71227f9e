package main

import (
	"database/sql"
	"fmt"
	"log"

	"quiz-backend/internal/config"
	"quiz-backend/internal/db"

	_ "github.com/lib/pq"
)

func main() {
	fmt.Println("🔍 Verifying database connection and ledger column types...")

	// Load config
	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db.InitDB()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	// Wei amounts must be NUMERIC(78,0) so a full uint256 fits
	checks := []struct {
		table  string
		column string
	}{
		{"accounts", "balance"},
		{"quiz_escrows", "funding_amount"},
		{"quiz_escrows", "total_paid_out"},
		{"quiz_participants", "total_payout"},
	}

	for _, check := range checks {
		var precision sql.NullInt64
		err := sqlDB.QueryRow(`
			SELECT numeric_precision
			FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		`, check.table, check.column).Scan(&precision)
		if err != nil {
			log.Fatalf("Failed to query %s.%s: %v", check.table, check.column, err)
		}

		if !precision.Valid {
			fmt.Printf("❌ %s.%s is not a numeric column!\n", check.table, check.column)
			continue
		}
		if precision.Int64 < 78 {
			fmt.Printf("❌ %s.%s precision too small: NUMERIC(%d), need NUMERIC(78)\n", check.table, check.column, precision.Int64)
			continue
		}
		fmt.Printf("✅ %s.%s: NUMERIC(%d,0)\n", check.table, check.column, precision.Int64)
	}

	fmt.Println("✅ Database verification complete")
}
