// Command admin is the operator CLI: block and unblock users, inspect and
// resolve open reports.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/storage"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "admin",
		Short:         "sparkmatch operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(blockCmd(), unblockCmd(), reportsCmd(), resolveCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("admin command failed")
	}
}

// openStorage connects without Redis; moderation writes don't need caches.
func openStorage() (*storage.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate("DB_URL"); err != nil {
		return nil, err
	}
	return storage.New(cfg.DBURL, nil, cfg.DBPoolMin, cfg.DBPoolMax, cfg.DBIdleTime)
}

func parseID(arg, name string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, arg)
	}
	return id, nil
}

func setBlocked(userID int64, blocked bool) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	user, err := store.GetUserByID(userID)
	if err != nil {
		return err
	}
	user.IsBlocked = blocked
	if err := store.UpdateUser(user); err != nil {
		return err
	}
	store.InvalidateCachedProfile(userID)
	return nil
}

func blockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <user_id>",
		Short: "block a user platform-wide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user_id")
			if err != nil {
				return err
			}
			if err := setBlocked(userID, true); err != nil {
				return err
			}
			fmt.Printf("user %d blocked\n", userID)
			return nil
		},
	}
}

func unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <user_id>",
		Short: "lift a platform-wide block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user_id")
			if err != nil {
				return err
			}
			if err := setBlocked(userID, false); err != nil {
				return err
			}
			fmt.Printf("user %d unblocked\n", userID)
			return nil
		},
	}
}

func reportsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "list open reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			reports, err := store.ListOpenReports(limit)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Println("no open reports")
				return nil
			}
			for _, r := range reports {
				fmt.Printf("#%d  reporter=%d reported=%d category=%s  %s\n",
					r.ID, r.ReporterID, r.ReportedID, r.Category, r.CreatedAt.Format("2006-01-02 15:04"))
				if r.Reason != "" {
					fmt.Printf("     %s\n", r.Reason)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum reports to list")
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <report_id>",
		Short: "mark a report resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, err := parseID(args[0], "report_id")
			if err != nil {
				return err
			}
			store, err := openStorage()
			if err != nil {
				return err
			}
			if err := store.ResolveReport(reportID); err != nil {
				return err
			}
			fmt.Printf("report %d resolved\n", reportID)
			return nil
		},
	}
}
