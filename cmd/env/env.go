package env

import (
	"encoding/json"
	"fmt"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/util/command"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Prints the env",
		Long: `Prints the currently applied env

Secrets are printed as configured, do not share the output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnv(cmd)
		},
	}
}

func runEnv(cmd *cobra.Command) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	c, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal the env: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(c))

	return nil
}
