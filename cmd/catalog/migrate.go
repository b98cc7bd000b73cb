package main

import (
	"log"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Synchronize the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		log.Println("🚀 Synchronizing database schema...")
		if err := db.Migrate(); err != nil {
			return err
		}
		log.Println("✅ Schema synchronized successfully")
		return nil
	},
}
