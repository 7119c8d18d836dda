package cmd

import (
	"fmt"
	"os"

	"github.com/immutable/ts-immutable-sdk-sub011/cmd/env"
	"github.com/immutable/ts-immutable-sdk-sub011/cmd/keystore"
	"github.com/immutable/ts-immutable-sdk-sub011/cmd/probe"
	"github.com/immutable/ts-immutable-sdk-sub011/cmd/server"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util/command"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

An EIP-1193 provider for Passport smart contract wallets, served as JSON-RPC over HTTP.
Requires configuration through ENV, optionally overlaid by a config file.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().String(command.FlagConfig, "", "Config file (YAML, TOML or JSON) overlaying the environment")

	// attach the subcommands
	rootCmd.AddCommand(
		env.New(),
		keystore.New(),
		probe.New(),
		server.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
