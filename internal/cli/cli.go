// Package cli provides the CLI client, i.e. the `kvproxy` binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	cmdutil "github.com/leg100/kvproxy/cmd"
	"github.com/leg100/kvproxy/internal"
	"github.com/leg100/kvproxy/internal/http"
	"github.com/leg100/kvproxy/internal/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const usageReminder = "Please provide either --get <key> or --set <path to json>"

// CLI is the `kvproxy` cli application
type CLI struct {
	// logs is where log lines are written. Defaults to stderr.
	logs io.Writer
}

func NewCLI() *CLI {
	return &CLI{logs: os.Stderr}
}

// Run parses args and makes at most one request to the kvproxy server,
// writing the outcome to out. Failures to reach the server or to read input
// are reported on out rather than returned.
func (a *CLI) Run(ctx context.Context, args []string, out io.Writer) error {
	var (
		key, path string
		host      string
		port      int
		loggerCfg *logr.Config
	)

	cmd := &cobra.Command{
		Use:           "kvproxy",
		Short:         "Get and set keys via a kvproxy server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       internal.Version,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loggerCfg.Output = a.logs
			logger, err := logr.New(loggerCfg)
			if err != nil {
				return err
			}
			client, err := http.NewClient(http.ClientConfig{
				URL:    http.NewURL(host, port),
				Logger: logger.Logger,
			})
			if err != nil {
				return err
			}

			switch {
			case key != "":
				a.get(cmd.Context(), logger, client, key, cmd.OutOrStdout())
			case path != "":
				a.set(cmd.Context(), logger, client, path, cmd.OutOrStdout())
			default:
				fmt.Fprintln(cmd.OutOrStdout(), usageReminder)
			}
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(out)

	cmd.Flags().StringVarP(&key, "get", "g", "", "Get the value of the specified key.")
	cmd.Flags().StringVarP(&path, "set", "s", "", "Set the key/value pair using the specified JSON file.")
	http.AddAddressFlags(cmd.Flags(), &host, &port)
	loggerCfg = logr.NewConfigFromFlags(cmd.Flags())

	if err := cmdutil.SetFlagsFromEnvVariables(cmd.Flags()); err != nil {
		return errors.Wrap(err, "failed to populate config from environment vars")
	}

	return cmd.ExecuteContext(ctx)
}

func (a *CLI) get(ctx context.Context, logger logr.Logger, client *http.Client, key string, out io.Writer) {
	logger.Info("getting value", "key", key)

	resp, err := client.Get(ctx, key)
	if err != nil {
		logger.Error(err, "getting value", "key", key)
		cmdutil.FprintError(out, err)
		return
	}
	if err := printJSON(out, resp); err != nil {
		cmdutil.FprintError(out, err)
		return
	}
	logger.Info("retrieved value", "key", key)
}

func (a *CLI) set(ctx context.Context, logger logr.Logger, client *http.Client, path string, out io.Writer) {
	logger.Info("setting key/value pair", "path", path)

	resp, err := func() (map[string]string, error) {
		body, err := readJSONFile(path)
		if err != nil {
			return nil, err
		}
		return client.Set(ctx, body)
	}()
	if err != nil {
		logger.Error(err, "setting key/value pair", "path", path)
		cmdutil.FprintError(out, err)
		return
	}
	if err := printJSON(out, resp); err != nil {
		cmdutil.FprintError(out, err)
		return
	}
	logger.Info("set key/value pair", "path", path)
}

// readJSONFile reads the file at path and checks it is valid JSON.
func readJSONFile(path string) (json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var body json.RawMessage
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return body, nil
}

func printJSON(out io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
