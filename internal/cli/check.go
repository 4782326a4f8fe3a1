package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
)

var (
	checkURL     string
	checkQuery   string
	checkTimeout time.Duration
)

// checkCmd runs one check through the pipeline and prints the report
var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Verify a piece of text or a URL and print the report",
	Long: `Check runs the full verification pipeline on one submission and
prints the completed check as JSON.

Example:
  clearcast check "The city banned electric scooters downtown last month."
  clearcast check --url https://example.com/article
  clearcast check --query "did the merger close in March" "the merger closed in March"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkURL, "url", "", "verify the content of a URL instead of literal text")
	checkCmd.Flags().StringVar(&checkQuery, "query", "", "question to answer from the verified claims")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "overall check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	inputType := model.InputText
	content := ""
	switch {
	case checkURL != "" && len(args) > 0:
		return fmt.Errorf("pass either text or --url, not both")
	case checkURL != "":
		inputType = model.InputURL
		content = checkURL
	case len(args) == 1:
		content = args[0]
	default:
		return fmt.Errorf("nothing to check: pass text or --url")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	check := &model.Check{
		ID:        "chk_" + uuid.NewString()[:16],
		InputType: inputType,
		Content:   content,
		Status:    model.StatusPending,
		Stage:     model.StagePending,
		UserQuery: checkQuery,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	if verbose {
		events, stop := comps.hub.Subscribe(check.ID)
		defer stop()
		go func() {
			for ev := range events {
				fmt.Fprintf(os.Stderr, "[%3d%%] %-9s %s\n", ev.Percent, ev.Stage, ev.Message)
			}
		}()
	}

	comps.pipeline.Run(ctx, check)

	final, err := comps.store.Get(check.ID)
	if err != nil {
		return fmt.Errorf("load completed check: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(final); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if final.Status == model.StatusFailed {
		return fmt.Errorf("check failed: %s", final.Error)
	}
	return nil
}
