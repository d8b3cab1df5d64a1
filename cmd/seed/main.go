package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oggyb/copal/internal/config"
	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/logger"
)

func main() {
	var minimal bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, likes, matches and a conversation",
		Long: "Resets the interaction and chat tables and loads demo data.\n" +
			"With --minimal only users u1, u2, u3 are created.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg := config.New()
			logger.InitFromConfig(cfg)

			database, err := db.NewDB(cfg)
			if err != nil {
				return err
			}

			seed := db.SeedTestData
			if minimal {
				seed = db.SeedMinimalTestData
			}
			if err := seed(database); err != nil {
				return err
			}

			logger.Info("seeding completed", "minimal", minimal)
			return nil
		},
	}
	cmd.Flags().BoolVar(&minimal, "minimal", false, "seed only the three-user fixture")

	if err := cmd.Execute(); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
}
