package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard"
	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and run scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return flags.withManager(func(m *opsboard.Manager, logger *zap.Logger) error {
				if !m.GetTokenInfo().HasToken {
					logger.Warn("Drive is not authorized, archive runs will fail until `opsboard auth code` is used")
				}
				return m.Run(ctx)
			})
		},
	}
}

func newJobsCmd() *cobra.Command {
	var headerLines int

	cmd := &cobra.Command{
		Use:   "jobs [file]",
		Short: "Parse a job listing table and print it as JSON",
		Long: `Parse the table printed by "openclaw cron list" and print the records as JSON.

The table is read from the given file, or from stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open job table: %w", err)
				}
				defer f.Close()
				in = f
			}

			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read job table: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(jobtable.ParseJobTable(string(raw), headerLines))
		},
	}
	cmd.Flags().IntVar(&headerLines, "header-lines", 1, "number of leading rows to skip")
	return cmd
}

func newAuthCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Drive access for snapshot archives",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the OAuth2 consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withManager(func(m *opsboard.Manager, _ *zap.Logger) error {
				fmt.Fprintln(cmd.OutOrStdout(), m.GetAuthURL())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "code <code>",
		Short: "Exchange an authorization code and store the token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withManager(func(m *opsboard.Manager, _ *zap.Logger) error {
				if err := m.SetAuthCode(cmd.Context(), args[0]); err != nil {
					return err
				}
				info := m.GetTokenInfo()
				fmt.Fprintf(cmd.OutOrStdout(), "Token stored, expires %s\n", info.Expiry.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	})

	return cmd
}

func newArchiveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Upload a dashboard snapshot to Google Drive now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withManager(func(m *opsboard.Manager, _ *zap.Logger) error {
				history, err := m.ArchiveNow(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes)\n", history.FileName, history.FileSize)
				return nil
			})
		},
	}
}

func newPollCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Poll the job listing once and record snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withManager(func(m *opsboard.Manager, _ *zap.Logger) error {
				result, err := m.PollNow(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d jobs, %d failures, %d recoveries\n",
					result.Jobs, len(result.Failures), len(result.Recoveries))
				return nil
			})
		},
	}
}
