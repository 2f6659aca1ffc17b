package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/matching"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

const (
	PromptSaveTop      = "Save top matches"
	PromptApply        = "Apply to a listing"
	PromptReport       = "Report by strategy"
	PromptDumpToFile   = "Dump matches to file"
	PromptExit         = "Exit"
	PromptBack         = "back"
	defaultSaveTopSize = 5
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptSaveTop, PromptApply, PromptReport, PromptDumpToFile, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score local and external listings against a user profile",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("user", "u", "", "user id whose profile is matched")
	matchCmd.Flags().IntP("auto-save", "s", 0, "save the top N matches without prompting")
	matchCmd.Flags().BoolP("include-applied", "f", false, "do not exclude listings already applied to")

	matchCmd.MarkFlagRequired("user")

	viper.BindPFlag("match.include-applied", matchCmd.Flags().Lookup("include-applied"))
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	d := prepare(ctx, cmd.Name())
	defer d.Close()

	userID, _ := cmd.Flags().GetString("user")
	log := d.logger.With(zap.String(logger.FieldUserID, userID))

	for _, st := range d.matcher.Filters(userID) {
		log.Info("filter",
			zap.String("name", st.Name),
			zap.Bool("enabled", st.Enabled),
			zap.String("reason", st.Reason),
		)
	}

	results, err := d.matcher.Run(ctx, userID)
	if err != nil {
		log.Fatal("running the match", zap.Error(err))
	}

	if len(results) == 0 {
		log.Info("exiting", zap.String("reason", "no listings to match"))
		return
	}

	logResults(log, results)

	if n, _ := cmd.Flags().GetInt("auto-save"); n > 0 {
		if err := saveTop(ctx, d, log, userID, results, n); err != nil {
			log.Fatal("saving matches", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := matchPrompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchAction(ctx, action, d, log, userID, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			log.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleMatchAction(ctx context.Context, action string, d *deps, log *zap.Logger, userID string, results []matching.Result) error {
	switch action {
	case PromptSaveTop:
		n, err := askCount(len(results))
		if err != nil {
			return err
		}
		return saveTop(ctx, d, log, userID, results, n)
	case PromptApply:
		return manualApply(ctx, d, log, userID, results)
	case PromptReport:
		for _, r := range reportByStrategy(results) {
			log.Info("matches by strategy", zap.String("strategy", string(r.strategy)), zap.Int("count", r.count))
		}
		return nil
	case PromptDumpToFile:
		filename, err := matching.DumpToTmpFile(results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		log.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func logResults(log *zap.Logger, results []matching.Result) {
	for i, r := range results {
		p := r.Job.Details()
		log.Info("match",
			zap.Int("rank", i+1),
			zap.Float64("score", r.Score),
			zap.String("strategy", string(r.Strategy)),
			zap.String("title", p.Title),
			zap.String("company", p.CompanyName),
			zap.String(logger.FieldJobSource, string(r.Job.Source())),
			zap.String("explanation", r.Explanation),
		)
	}
	log.Info("matched listings", zap.Int("count", len(results)))
}

type strategyCount struct {
	strategy matching.Strategy
	count    int
}

// reportByStrategy counts results per strategy in matching.Strategies order.
func reportByStrategy(results []matching.Result) []strategyCount {
	out := make([]strategyCount, 0, len(matching.Strategies))
	for _, strategy := range matching.Strategies {
		n := 0
		for _, r := range results {
			if r.Strategy == strategy {
				n++
			}
		}
		out = append(out, strategyCount{strategy: strategy, count: n})
	}
	return out
}

func askCount(limit int) (int, error) {
	prompt := promptui.Prompt{
		Label:   fmt.Sprintf("How many (1-%d)", limit),
		Default: strconv.Itoa(min(defaultSaveTopSize, limit)),
		Validate: func(input string) error {
			n, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil || n < 1 || n > limit {
				return fmt.Errorf("enter a number between 1 and %d", limit)
			}
			return nil
		},
	}

	input, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(input))
}

// saveTop saves the n best matches. Listings saved before are skipped.
func saveTop(ctx context.Context, d *deps, log *zap.Logger, userID string, results []matching.Result, n int) error {
	saved := 0
	for _, l := range matching.Listings(results[:min(n, len(results))]) {
		if _, err := d.profile.SaveListing(ctx, userID, l); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				log.Debug("listing already saved", logger.JobFields(l.Details().ID, string(l.Source()))...)
				continue
			}
			return err
		}
		saved++
	}

	log.Info("saved matches", zap.Int("count", saved))
	return nil
}

func manualApply(ctx context.Context, d *deps, log *zap.Logger, userID string, results []matching.Result) error {
	remaining := matching.Listings(results)

	for {
		if len(remaining) == 0 {
			return nil
		}

		items := make([]string, 0, len(remaining)+1)
		for i, l := range remaining {
			p := l.Details()
			items = append(items, fmt.Sprintf("%d %s / %s / %s", i+1, p.Title, p.CompanyName, p.SourceURL))
		}

		listingPrompt := promptui.Select{
			Label: "Choose a listing and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := listingPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		if err := applyListing(ctx, d, log, userID, remaining[idx]); err != nil {
			return err
		}
		remaining = slices.Delete(remaining, idx, idx+1)
	}
}

func applyListing(ctx context.Context, d *deps, log *zap.Logger, userID string, l jobs.Listing) error {
	p := l.Details()

	if _, err := d.profile.ApplyListing(ctx, userID, l); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			log.Info("already applied", logger.JobFields(p.ID, string(l.Source()))...)
			return nil
		}
		return err
	}

	log.Info("successfully applied to listing",
		append(logger.JobFields(p.ID, string(l.Source())), zap.String("title", p.Title))...,
	)
	return nil
}
