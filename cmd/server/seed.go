package main

import (
	"prompt-manager/auth"
	"prompt-manager/internal/app"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/db"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/user"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	seedDemoUser bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default settings and, optionally, a demo account",
	Long: `Insert the built-in system settings that are not stored yet.
Existing settings keep their values.

Examples:
  prompt-manager seed
  prompt-manager seed --demo --password s3cretpass`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, conn, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer db.CloseDb(conn)

		if err := db.Migrate(conn); err != nil {
			return err
		}

		recorder := audit.NewDispatcher(nil, audit.NewDBSink(conn))
		a := app.New(cfg, conn, recorder, app.NewRunner(cfg), auth.NewBcryptHasher())

		n, err := a.Settings.Seed(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("inserted", n).Msg("settings seeded")

		if !seedDemoUser {
			return nil
		}
		u, err := a.Users.Register(ctx, user.RegisterInput{
			Username:    "demo",
			Email:       "demo@example.com",
			Password:    seedPassword,
			DisplayName: "Demo User",
		})
		if errors.HasCode(err, errors.CodeUsernameExists) {
			log.Info().Msg("demo user already exists")
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().Uint64("id", u.ID).Msg("demo user created")
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemoUser, "demo", false, "also create a demo account")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "password for the demo account")
}
