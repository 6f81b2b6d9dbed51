package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/badge"
	"github.com/memeshare/achievement-engine/pkg/client"
	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/eligibility"
	"github.com/memeshare/achievement-engine/pkg/engine"
	"github.com/memeshare/achievement-engine/pkg/errors"
	"github.com/memeshare/achievement-engine/pkg/metrics"
	"github.com/memeshare/achievement-engine/pkg/trigger"
)

func newRulesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the achievement registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadRegistry()
			if err != nil {
				return err
			}
			if opts.Format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), reg.All())
			}
			return writeRules(cmd.OutOrStdout(), reg.All())
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the award, counter and activity tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.migrate(cmd.Context()); err != nil {
				return err
			}
			if opts.Format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"driver": opts.Driver})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", opts.Driver)
			return err
		},
	}
}

func newEvaluateCommand(opts *rootOptions) *cobra.Command {
	var userID, achievementID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate and award one achievement for a user",
		Long: `Evaluate runs the award engine for one (user, achievement) pair.

With --dry-run only the aggregate and threshold are reported; nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadRegistry()
			if err != nil {
				return err
			}
			s, err := opts.openStores()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			evaluator := eligibility.NewEvaluator(s.activity, opts.logger)
			ctx := cmd.Context()

			if dryRun {
				rule, ok := reg.Lookup(achievementID)
				if !ok {
					return errors.ErrAchievementNotFound(achievementID)
				}
				d, err := evaluator.Evaluate(ctx, userID, rule)
				if err != nil {
					return err
				}
				if opts.Format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), d)
				}
				return writeDecision(cmd.OutOrStdout(), userID, achievementID, d)
			}

			e := engine.NewAwardEngine(reg, s.awards, s.counters, evaluator, opts.logger, engine.WithClock(opts.clock))
			outcome, err := e.EvaluateAndAward(ctx, userID, achievementID)
			if err != nil {
				return err
			}
			if opts.Format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), outcome)
			}
			return writeOutcome(cmd.OutOrStdout(), userID, achievementID, outcome)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&achievementID, "achievement", "", "achievement id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report eligibility without awarding")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("achievement")
	return cmd
}

func newAwardsCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "awards",
		Short: "List a user's earned achievements with holder counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadRegistry()
			if err != nil {
				return err
			}
			s, err := opts.openStores()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			views, err := badge.NewService(reg, s.awards, s.counters, opts.logger).ListAwards(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if opts.Format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			return writeAwards(cmd.OutOrStdout(), views)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRecordCommand(opts *rootOptions) *cobra.Command {
	var userID, collection string
	var attrs []string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append an activity record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := parseAttributes(attrs)
			if err != nil {
				return err
			}
			s, err := opts.openStores()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			record := &domain.ActivityRecord{
				Collection: collection,
				UserID:     userID,
				Attributes: attributes,
				CreatedAt:  opts.clock(),
			}
			if err := s.activity.Record(cmd.Context(), record); err != nil {
				return err
			}
			if opts.Format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"collection": collection,
					"userId":     userID,
					"attributes": attributes,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s activity for %s\n", collection, userID)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&collection, "collection", "", "activity collection")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "attribute as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

// parseAttributes converts key=value pairs, typing values as int, float, bool or string.
func parseAttributes(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid attribute %q: want key=value", pair)
		}
		attrs[strings.TrimSpace(key)] = parseValue(raw)
	}
	return attrs, nil
}

func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func newConsumeCommand(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume activity events from Kafka and award achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConsume(ctx, opts, metricsAddr, concurrency)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", envOr("METRICS_ADDR", ":9090"), "address serving /metrics (empty disables)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "max concurrent evaluations per event")
	return cmd
}

func runConsume(ctx context.Context, opts *rootOptions, metricsAddr string, concurrency int) error {
	reg, err := opts.loadRegistry()
	if err != nil {
		return err
	}
	s, err := opts.openStores()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	e := engine.NewAwardEngine(reg, s.awards, s.counters,
		eligibility.NewEvaluator(s.activity, opts.logger), opts.logger,
		engine.WithClock(opts.clock), engine.WithMetrics(m))

	var notifier client.NotificationClient = client.NewLogNotificationClient(opts.logger)
	brokers := splitList(envOr("KAFKA_BROKERS", "localhost:9092"))
	if topic := os.Getenv("KAFKA_BADGE_TOPIC"); topic != "" {
		writer := client.NewKafkaWriter(brokers, topic)
		defer func() { _ = writer.Close() }()
		notifier = client.NewKafkaNotificationClient(writer)
	}

	handler := trigger.NewHandler(reg, e, notifier, opts.logger, concurrency)
	consumer, err := trigger.NewKafkaConsumer(trigger.ConsumerConfig{
		Brokers: brokers,
		Topic:   envOr("KAFKA_ACTIVITY_TOPIC", "activity-events"),
		GroupID: envOr("KAFKA_GROUP_ID", "achievement-engine"),
	}, handler, opts.logger)
	if err != nil {
		return err
	}
	defer func() { _ = consumer.Close() }()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				opts.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err = consumer.Run(ctx)
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
