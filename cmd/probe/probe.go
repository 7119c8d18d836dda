package probe

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util/command"
	"github.com/spf13/cobra"
)

const (
	verboseFlag string = "verbose"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
}

func newLiveness() *cobra.Command {
	return newProbe("liveness", "Runs liveness probes", "/-/healthy")
}

func newReadiness() *cobra.Command {
	return newProbe("readiness", "Runs readiness probes", "/-/ready")
}

func newProbe(name string, short string, path string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long: fmt.Sprintf(`%s

Queries %s of the server listening on the configured address.
Exits non zero when the probe fails.`, short, path),
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}

			return runProbe(cmd, path, verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runProbe(cmd *cobra.Command, path string, verbose bool) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	url := probeURL(cfg.Echo.ListenAddress, path)

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := util.NewHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("probe %s failed: %w", url, err)
	}
	defer res.Body.Close()

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", url, res.StatusCode)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s failed with status %d", url, res.StatusCode)
	}

	return nil
}

// probeURL targets the loopback interface when the server listens on all interfaces.
func probeURL(listenAddress string, path string) string {
	host, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		return "http://" + strings.TrimSuffix(listenAddress, "/") + path
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return "http://" + net.JoinHostPort(host, port) + path
}
