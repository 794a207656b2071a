package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/gridcast/internal/artifact"
	"github.com/yourusername/gridcast/internal/backtest"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/datasource"
	"github.com/yourusername/gridcast/internal/health"
	"github.com/yourusername/gridcast/internal/scheduler"
	"github.com/yourusername/gridcast/internal/service"
)

const jobTimeout = 30 * time.Minute

var (
	season       int
	week         int
	fromWeek     int
	predictions  string
	top          int
	matchesFile  string
	scheduleOnce bool
)

func init() {
	predictCmd.Flags().IntVar(&season, "season", 0, "Season to forecast (default: next scheduled week)")
	predictCmd.Flags().IntVar(&week, "week", 0, "Week to forecast")

	validateCmd.Flags().IntVar(&season, "season", 0, "Season to validate (default: latest finished week)")
	validateCmd.Flags().IntVar(&week, "week", 0, "Week to validate")
	validateCmd.Flags().StringVar(&predictions, "predictions", "", "Predictions CSV (default: the week's artifact)")

	ratingsCmd.Flags().IntVar(&top, "top", 0, "Only print the top N teams")

	backtestCmd.Flags().IntVar(&season, "season", 0, "Season to replay")
	backtestCmd.Flags().IntVar(&fromWeek, "from-week", 2, "First week to forecast")
	_ = backtestCmd.MarkFlagRequired("season")

	syncMatchesCmd.Flags().StringVar(&matchesFile, "file", "", "Match history CSV to load")
	_ = syncMatchesCmd.MarkFlagRequired("file")

	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "Run every job once and exit")
}

func horizon(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Schedule.HorizonDays) * 24 * time.Hour
}

func weekSelected(cmd *cobra.Command) (bool, error) {
	s, w := cmd.Flags().Changed("season"), cmd.Flags().Changed("week")
	if s != w {
		return false, fmt.Errorf("--season and --week must be given together")
	}
	return s, nil
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast every fixture of a week",
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := weekSelected(cmd)
		if err != nil {
			return err
		}

		var result *service.ForecastResult
		if selected {
			feeds, err := deps.feeds()
			if err != nil {
				return err
			}
			defer feeds.Close()
			result, err = deps.forecastService(feeds).Run(cmd.Context(), season, week)
			if err != nil {
				return err
			}
		} else {
			result, err = deps.predictNext(cmd.Context())
			if err != nil || result == nil {
				return err
			}
		}
		printForecast(cmd.OutOrStdout(), result)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score stored predictions against realized results",
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := weekSelected(cmd)
		if err != nil {
			return err
		}
		feeds, err := deps.feeds()
		if err != nil {
			return err
		}
		defer feeds.Close()

		svc, err := deps.validationService(feeds)
		if err != nil {
			return err
		}
		if !selected {
			var ok bool
			season, week, ok, err = svc.PendingWeek(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No finished week awaiting validation")
				return nil
			}
		}

		report, err := svc.Run(cmd.Context(), predictions, season, week)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateConsoleReport(report))
		return nil
	},
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Print the rating leaderboard from the last forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := artifact.ReadRatings(deps.cfg.Output.CacheDir)
		if err != nil {
			return fmt.Errorf("read ratings snapshot: %w", err)
		}
		printLeaderboard(cmd.OutOrStdout(), snap, top)
		return nil
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a season week by week and validate every forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		feeds, err := deps.feeds()
		if err != nil {
			return err
		}
		defer feeds.Close()

		svc, err := service.NewBacktestService(deps.forecastService(feeds))
		if err != nil {
			return err
		}
		result, err := svc.Run(cmd.Context(), season, fromWeek)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateWalkForwardReport(result))
		return nil
	},
}

var syncMatchesCmd = &cobra.Command{
	Use:   "sync-matches",
	Short: "Load a match history CSV into postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deps.repos == nil {
			return fmt.Errorf("sync-matches needs postgres storage or a postgres matches feed")
		}
		src := datasource.NewMatchCSV(matchesFile, datasource.RetryPolicy(deps.cfg.Retry), datasource.NewRecordValidator(deps.logger), deps.logger)
		matches, err := src.Matches(cmd.Context())
		if err != nil {
			return err
		}
		if err := deps.repos.Match.UpsertBatch(cmd.Context(), matches); err != nil {
			return fmt.Errorf("store matches: %w", err)
		}
		deps.logger.WithFields(logrus.Fields{"file": matchesFile, "matches": len(matches)}).Info("Matches synced")
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run predict and validate on their cron schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched, err := buildScheduler(deps)
		if err != nil {
			return err
		}
		if scheduleOnce {
			for _, st := range sched.Status() {
				if err := sched.RunNow(ctx, st.Name); err != nil {
					return err
				}
			}
			return nil
		}

		var srv *health.Server
		if deps.cfg.Metrics.Enabled {
			hc := health.Config{
				ServiceName: deps.cfg.App.Name,
				Version:     Version,
				Port:        deps.cfg.Metrics.Port,
				MetricsPath: deps.cfg.Metrics.Path,
				Logger:      deps.logger,
				Jobs:        sched,
			}
			if deps.db != nil {
				hc.DB = deps.db
			}
			srv = health.NewServer(hc)
			if err := srv.Start(ctx); err != nil {
				return err
			}
		}

		if err := sched.Start(); err != nil {
			return err
		}
		if srv != nil {
			srv.SetReady(true)
		}
		deps.logger.WithField("next_run", sched.GetNextRun()).Info("Scheduler running")

		<-ctx.Done()
		if srv != nil {
			srv.SetReady(false)
		}
		return sched.Stop()
	},
}

func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(a.logger, jobTimeout)
	if expr := a.cfg.Schedule.PredictCron; expr != "" {
		err := sched.Schedule(service.KindPredict, expr, func(ctx context.Context) error {
			_, err := a.predictNext(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	if expr := a.cfg.Schedule.ValidateCron; expr != "" {
		if err := sched.Schedule(service.KindValidate, expr, a.validatePending); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func printForecast(w io.Writer, r *service.ForecastResult) {
	fmt.Fprintf(w, "Season %d week %d (cutoff %s, %d training rows)\n",
		r.Season, r.Week, r.Cutoff.Format("2006-01-02"), r.TrainingRows)
	for _, rec := range r.Records {
		final := rec.Final()
		fmt.Fprintf(w, "  %-28s %-4s by %5.1f  p(home)=%.3f\n",
			rec.MatchID, final.Winner, math.Abs(final.Spread), final.WinProbability)
	}
	if len(r.Excluded) > 0 {
		fmt.Fprintf(w, "Excluded: %v\n", r.Excluded)
	}
	fmt.Fprintf(w, "Predictions written to %s\n", r.PredictionsPath)
}

func printLeaderboard(w io.Writer, snap *artifact.RatingsSnapshot, limit int) {
	fmt.Fprintf(w, "Ratings as of %s\n", snap.AsOf.Format("2006-01-02"))
	for i, team := range snap.Leaderboard() {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(w, "%3d. %-4s %7.1f\n", i+1, team, snap.Current[team])
	}
}
