package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs one sync pass and prints its summary",
		Long: `Connects to the store, loads the known Object IDs, pages through the
search API and appends every new article in a single batch. The summary is
printed as JSON; the command fails when the run ends in the failed state.`,
		Args: cobra.NoArgs,
		RunE: runSyncCommand,
	}
}

func runSyncCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := appInstance.Runner().Run(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep.Summary()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if rep.Failed() {
		return fmt.Errorf("run %s failed while %s: %w", rep.RunID, rep.FailedIn, rep.Err)
	}
	return nil
}
