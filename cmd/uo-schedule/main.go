package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"uniovi-scraper/lib/restyutil"
	"uniovi-scraper/lib/scrapers/uniovi"
	"uniovi-scraper/lib/serviceutil"
	"uniovi-scraper/lib/telemetry"
	"uniovi-scraper/services/schedule"

	"github.com/spf13/cobra"
)

var (
	flagStatic   bool
	flagVerbose  bool
	flagTimeout  int
	flagDumpHttp string
)

func init() {
	rootCmd.Flags().BoolVar(&flagStatic, "static", false, "Use plain HTTP instead of a headless browser.")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Override the results wait timeout, in seconds.")
	rootCmd.Flags().StringVar(&flagDumpHttp, "dump-http", "", "Dump portal HTTP traffic to this directory (static mode only).")
}

var rootCmd = &cobra.Command{
	Use:   "uo-schedule [identifier]",
	Short: "Looks up a student's class schedule on the university portal and prints it as JSON.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		telemetry.InitSlog(flagVerbose)
		tel, err := telemetry.SetupFromEnv(ctx, "uo-schedule")
		if err == nil {
			defer tel.Shutdown(context.Background())
		} else if !os.IsNotExist(err) {
			// running without telemetry is fine, a broken setup is not
			// worth dying over, but it should be diagnosable
			slog.Warn("telemetry setup failed", "err", err)
		}

		cfg, err := uniovi.LoadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read uniovi.json5", err)
		}
		if flagTimeout > 0 {
			cfg.ResultsTimeoutSeconds = flagTimeout
		}

		identifier := ""
		if len(args) == 1 {
			identifier = args[0]
		} else {
			identifier, err = promptIdentifier()
			if err != nil {
				serviceutil.Fatal("failed to read identifier from stdin", err)
			}
		}

		svc := schedule.NewService(portalOpener(cfg))
		result := svc.Run(ctx, identifier)

		emit(result)
	},
}

func portalOpener(cfg uniovi.Config) schedule.PortalOpener {
	if flagStatic {
		return func(ctx context.Context) (uniovi.Portal, error) {
			client, err := uniovi.NewStaticClient(cfg)
			if err != nil {
				return nil, err
			}
			if flagDumpHttp != "" {
				client.SetInstrumentOutput(restyutil.NewFilesystemOutput(flagDumpHttp))
			}
			return client, nil
		}
	}
	return func(ctx context.Context) (uniovi.Portal, error) {
		return uniovi.NewBrowser(ctx, cfg)
	}
}

func promptIdentifier() (string, error) {
	fmt.Fprintln(os.Stderr, "Enter the UO identifier:")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// emit writes the result object to stdout. The exit code only reflects
// whether JSON made it out: a failure result still exits 0, consumers read
// the success flag instead.
func emit(result schedule.Result) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		serviceutil.Fatal("failed to serialize result", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	if err != nil {
		serviceutil.Fatal("failed to write result", err)
	}
}

func main() {
	err := rootCmd.ExecuteContext(serviceutil.SignalContext())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
