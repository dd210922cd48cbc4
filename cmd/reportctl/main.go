package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/config"
	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/logger"
	"github.com/kambaexpress/backoffice/internal/order"
	"github.com/kambaexpress/backoffice/internal/repository/postgresql"
	"github.com/kambaexpress/backoffice/internal/storage"
)

var (
	configFile string
	email      string
	days       int
	limit      int
	rating     int
	timeout    time.Duration

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "reportctl",
	Short:         "Print back-office order reports from the database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		log = logger.New(cfg.Log.Level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Totals, revenue and status breakdown",
	RunE: withOrders(func(cmd *cobra.Command, orders []order.Order, loc *time.Location) error {
		return renderSummary(cmd.OutOrStdout(), orders, time.Now(), loc)
	}),
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Per-customer order count and spend",
	RunE: withOrders(func(cmd *cobra.Command, orders []order.Order, _ *time.Location) error {
		return renderCustomers(cmd.OutOrStdout(), orders, limit)
	}),
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Orders and revenue per day",
	Args:  cobra.NoArgs,
	RunE: withOrders(func(cmd *cobra.Command, orders []order.Order, loc *time.Location) error {
		if days <= 0 || days > 90 {
			return fmt.Errorf("--days must be between 1 and 90")
		}
		return renderTrend(cmd.OutOrStdout(), orders, time.Now(), days, loc)
	}),
}

var attentionCmd = &cobra.Command{
	Use:   "attention",
	Short: "Orders awaiting payment or held in customs",
	RunE: withOrders(func(cmd *cobra.Command, orders []order.Order, _ *time.Location) error {
		return renderAttention(cmd.OutOrStdout(), orders)
	}),
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Rating distribution and the reviews behind it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := order.ReviewFilter{Rating: rating}
		if err := filter.Validate(); err != nil {
			return err
		}
		return withStorage(func(ctx context.Context, stg *storage.PostgresStorage) error {
			reviews, err := stg.ListReviews(ctx)
			if err != nil {
				return err
			}
			log.Debug("Loaded reviews", zap.Int("count", len(reviews)))
			return renderReviews(cmd.OutOrStdout(), reviews, filter)
		})
	},
}

type ordersRunFunc func(cmd *cobra.Command, orders []order.Order, loc *time.Location) error

// withOrders loads the order list and hands it to fn.
func withOrders(fn ordersRunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		return withStorage(func(ctx context.Context, stg *storage.PostgresStorage) error {
			orders, err := stg.ListOrders(ctx, email)
			if err != nil {
				return err
			}
			log.Debug("Loaded orders", zap.Int("count", len(orders)))
			return fn(cmd, orders, loc)
		})
	}
}

// withStorage connects to the database for the length of fn. Only read
// repositories are wired.
func withStorage(fn func(ctx context.Context, stg *storage.PostgresStorage) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	database, err := db.NewDb(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	stg := storage.NewPostgresStorage(database, storage.Repositories{
		Orders:  postgresql.NewOrderRepo(database),
		Reviews: postgresql.NewReviewRepo(database),
	}, cfg.Kafka.Topic, log)
	return fn(ctx, stg)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "Only include orders of this customer")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Query timeout")

	trendCmd.Flags().IntVar(&days, "days", 7, "Number of days, ending today")
	customersCmd.Flags().IntVar(&limit, "limit", 0, "Show only the top N customers")
	reviewsCmd.Flags().IntVar(&rating, "rating", 0, "List only reviews with this many stars")

	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(customersCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(attentionCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
