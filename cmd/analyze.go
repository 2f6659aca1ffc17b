package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/resume"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume and optionally apply the result to a profile",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("file", "i", "", "plain text resume file (prompted when unset)")
	analyzeCmd.Flags().StringP("user", "u", "", "user id whose profile receives the result")
	analyzeCmd.Flags().Bool("add-skills", false, "merge the extracted key skills into the profile")
	analyzeCmd.Flags().Bool("append-strengths", false, "append the strengths to the profile bio")
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	d := prepare(ctx, cmd.Name())
	defer d.Close()

	if d.analyzer == nil {
		d.logger.Fatal("resume analysis needs an ai provider", zap.String("hint", "set ai.provider and its api key"))
	}

	path, _ := cmd.Flags().GetString("file")
	text, err := readResume(path)
	if err != nil {
		d.logger.Fatal("reading the resume", zap.Error(err))
	}

	analysis, err := d.analyzer.Analyze(ctx, text)
	if err != nil {
		if errors.Is(err, resume.ErrInvalidInput) {
			d.logger.Fatal("resume rejected", zap.Error(err), zap.Int("max_length", resume.MaxLength))
		}
		d.logger.Fatal(resume.UserMessage, zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(analysis, "", "  ")
	d.logger.Info(string(pretty), zap.Int("key_skills", len(analysis.KeySkills)))

	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		return
	}
	log := d.logger.With(zap.String(logger.FieldUserID, userID))

	if add, _ := cmd.Flags().GetBool("add-skills"); add && len(analysis.KeySkills) > 0 {
		p, err := d.profile.AddSkills(ctx, userID, analysis.KeySkills)
		if err != nil {
			log.Fatal("adding skills", zap.Error(err))
		}
		log.Info("profile skills updated", zap.Strings("skills", p.Skills))
	}

	if appendStrengths, _ := cmd.Flags().GetBool("append-strengths"); appendStrengths && len(analysis.Strengths) > 0 {
		if _, err := d.profile.AppendStrengths(ctx, userID, analysis.Strengths); err != nil {
			log.Fatal("appending strengths", zap.Error(err))
		}
		log.Info("profile bio updated", zap.Int("strengths", len(analysis.Strengths)))
	}
}

func readResume(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		prompt := promptui.Prompt{
			Label: "Path to the resume text file",
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return errors.New("path is required")
				}
				return nil
			},
		}

		input, err := prompt.Run()
		if err != nil {
			return "", err
		}
		path = input
	}

	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
