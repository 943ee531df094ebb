package main

import (
	"database/sql"
	"fmt"
	"log"
	"net"
	"strconv"

	"animeshelf/config"

	"github.com/go-sql-driver/mysql"
)

// tables 子表在前
var tables = []string{"activity", "message", "review", "library_entry", "friend_edge", "profile", "account"}

func main() {
	// Load configuration
	cfg := config.LoadConfig().Database
	if cfg.Driver != "" && cfg.Driver != "mysql" {
		log.Fatalf("reset_db only supports mysql, configured driver is %q", cfg.Driver)
	}

	// Build DSN
	dsn := mysql.Config{
		User:                 cfg.Username,
		Passwd:               cfg.Password,
		Net:                  "tcp",
		Addr:                 net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		DBName:               cfg.Database,
		Params:               map[string]string{"charset": cfg.Charset},
		ParseTime:            true,
		AllowNativePasswords: true,
	}

	// Connect DB
	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database connection test failed: %v", err)
	}

	fmt.Println("Database connected successfully")
	fmt.Printf("Database: %s\n", cfg.Database)

	// Confirm
	fmt.Printf("\nWARNING: This operation will CLEAR ALL DATA in tables %v!\n", tables)
	fmt.Print("Type 'YES' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "YES" {
		fmt.Println("Operation cancelled")
		return
	}

	// Disable FK checks to avoid constraint issues
	_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=0")

	for _, table := range tables {
		fmt.Printf("Clearing table %s... ", table)
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM `%s`", table)); err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	// Reset auto-increment ids (profile ids follow account ids)
	fmt.Println("\nResetting auto-increment IDs...")
	for _, table := range tables {
		if table == "profile" {
			continue
		}
		fmt.Printf("Resetting %s auto-increment... ", table)
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE `%s` AUTO_INCREMENT = 1", table)); err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	// Re-enable FK checks
	_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=1")

	fmt.Println("\nDatabase reset completed!")
	fmt.Println("All table data cleared, table structure preserved")
}
