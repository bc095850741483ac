package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/database"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Options{})
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Verify stale unverified reservations once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.sweeper().RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSweep(res))
			return nil
		},
	}
}

func formatSweep(r booking.SweepResult) string {
	return fmt.Sprintf("checked=%d kept=%d evicted=%d gone=%d audited=%d revoked=%d failed=%d",
		r.Checked, r.Kept, r.Evicted, r.Gone, r.Audited, r.Revoked, r.Failed)
}

func newConsumeCmd() *cobra.Command {
	var (
		url     string
		logPath string
	)
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append booking events from RabbitMQ to a log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if url == "" {
				url = os.Getenv("AMQP_URL")
			}
			c := queue.NewConsumer(url)
			if logPath != "" {
				c.LogPath = logPath
			}
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "broker URL (default $AMQP_URL)")
	cmd.Flags().StringVar(&logPath, "log", "", "event log file (default logs/booking.log)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID uint64
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if userID == 0 {
				return errors.New("--user is required")
			}
			if role != model.RoleCustomer && role != model.RoleOwner {
				return fmt.Errorf("--role must be %s or %s", model.RoleCustomer, model.RoleOwner)
			}
			tok, err := utils.NewAccessToken(secret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", model.RoleCustomer, "CUSTOMER or OWNER")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Maintain the Redis inventory ledger",
	}
	cmd.AddCommand(newLedgerSeedCmd())
	return cmd
}

func newLedgerSeedCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Rebuild ledger counters from active reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if a.rdb == nil {
				return errors.New("redis is not reachable")
			}
			ledger := a.ledger
			if ledger == nil {
				bc := a.booking
				ledger = booking.NewRedisLedger(a.rdb, bc.LedgerPrefix, bc.LedgerTTL)
			}

			ctx := cmd.Context()
			ids, err := a.rooms.ListIDs(ctx)
			if err != nil {
				return err
			}
			chunks, err := seedChunks(from, to, a.booking.MaxNights)
			if err != nil {
				return err
			}
			seeded := 0
			for _, id := range ids {
				for _, c := range chunks {
					q, err := a.svc.Availability(ctx, id, c[0], c[1])
					if err != nil {
						return fmt.Errorf("room type %d: %w", id, err)
					}
					for _, d := range q.Days {
						if err := ledger.Seed(ctx, id, d.Date, d.Used); err != nil {
							return fmt.Errorf("room type %d %s: %w", id, d.Date.Format(booking.DateLayout), err)
						}
						seeded++
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d counters across %d room types\n", seeded, len(ids))
			return nil
		},
	}
	today := time.Now().UTC().Format(booking.DateLayout)
	cmd.Flags().StringVar(&from, "from", today, "first night to seed (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", time.Now().UTC().AddDate(1, 0, 0).Format(booking.DateLayout), "day after the last night to seed")
	return cmd
}

// seedChunks splits [from, to) into ranges no longer than maxNights so
// each fits the availability query's stay limit.
func seedChunks(from, to string, maxNights int) ([][2]string, error) {
	in, err := booking.ParseDate("from", from)
	if err != nil {
		return nil, err
	}
	out, err := booking.ParseDate("to", to)
	if err != nil {
		return nil, err
	}
	if !in.Before(out) {
		return nil, errors.New("--to must be after --from")
	}
	if maxNights <= 0 {
		maxNights = booking.DefaultMaxNights
	}
	var chunks [][2]string
	for in.Before(out) {
		end := in.AddDate(0, 0, maxNights)
		if end.After(out) {
			end = out
		}
		chunks = append(chunks, [2]string{in.Format(booking.DateLayout), end.Format(booking.DateLayout)})
		in = end
	}
	return chunks, nil
}
