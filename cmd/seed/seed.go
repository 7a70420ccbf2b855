// Package seed implements the campaign seeding command: it reads a file of
// target URLs, filters out targets already contacted, and enqueues an
// analysis task per surviving domain.
package seed

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/formreach/formreach/cmd/common"
	"github.com/formreach/formreach/internal/dedup"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

var (
	campaignID  string
	targetsFile string
	dedupPolicy string
	priority    int
)

// Command returns the seed command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Enqueue analysis tasks for a file of target domains",
		Long: `Reads one target URL or domain per line (blank lines and # comments are
ignored), drops targets the duplicate guard has already seen under the given
policy, and creates a domain record plus an analysis task for each remainder.`,
		RunE: run,
	}

	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign identifier (required)")
	cmd.Flags().StringVar(&targetsFile, "file", "", "path to the targets file (required)")
	cmd.Flags().StringVar(&dedupPolicy, "dedup-policy", "", "duplicate policy: skip, allow, or retry-failed (default from config)")
	cmd.Flags().IntVar(&priority, "priority", domain.TaskDefaultPriority, "priority for the enqueued tasks")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	deps, err := common.NewDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	targets, err := readTargets(targetsFile)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets found in %s", targetsFile)
	}

	policyValue := dedupPolicy
	if policyValue == "" {
		policyValue = deps.Config.Processor.DedupPolicy
	}
	policy, err := dedup.ParsePolicy(policyValue)
	if err != nil {
		return err
	}

	eligible, err := deps.Guard.Filter(
		cmd.Context(), targets, policy, deps.Config.Processor.DedupWindowDays,
	)
	if err != nil {
		return fmt.Errorf("failed to filter targets: %w", err)
	}

	seeded := 0
	for _, target := range eligible {
		normalized, normErr := dedup.NormalizeTarget(target)
		if normErr != nil {
			deps.Logger.Warn("skipping unnormalizable target", logger.String("target", target))
			continue
		}

		d := &domain.Domain{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			URL:        "https://" + normalized,
			Status:     domain.DomainStatusPending,
		}
		if createErr := deps.Domains.Create(cmd.Context(), d); createErr != nil {
			return fmt.Errorf("failed to create domain %s: %w", normalized, createErr)
		}

		task := &domain.Task{
			ID:          uuid.NewString(),
			CampaignID:  campaignID,
			DomainID:    d.ID,
			TaskType:    domain.TaskTypeAnalyzeDomain,
			Status:      domain.TaskStatusPending,
			Priority:    priority,
			MaxAttempts: domain.DefaultMaxAttempts,
		}
		if createErr := deps.Tasks.Create(cmd.Context(), task); createErr != nil {
			return fmt.Errorf("failed to enqueue task for %s: %w", normalized, createErr)
		}
		seeded++
	}

	fmt.Printf("seeded %d of %d targets (%d filtered as duplicates)\n",
		seeded, len(targets), len(targets)-len(eligible))

	return nil
}

// readTargets reads one target per line, skipping blanks and # comments.
func readTargets(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer file.Close()

	var targets []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", scanErr)
	}

	return targets, nil
}
