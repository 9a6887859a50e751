package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/udms-pro/udms/internal/notify"
)

// NewRootCommand builds the udms command tree. serve runs the HTTP console and
// is also what a bare `udms` invocation does.
func NewRootCommand(serve func(cmd *cobra.Command) error) *cobra.Command {
	root := &cobra.Command{
		Use:           "udms",
		Short:         "UDMS residence console",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the console HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd)
			},
		},
		newSeedCommand(),
		newJobsCommand(),
	)
	return root
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func newSeedCommand() *cobra.Command {
	seed := &cobra.Command{Use: "seed", Short: "Seed data helpers"}
	var opts SeedValidateOptions
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a seed document against the store invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			if code := ValidateSeedCommand(opts); code != 0 {
				return ExitError{Code: code}
			}
			return nil
		},
	}
	validate.Flags().StringVar(&opts.Path, "path", os.Getenv("SEED_PATH"), "seed YAML file (embedded seed when empty)")
	validate.Flags().BoolVar(&opts.JSONOutput, "json", false, "print a JSON summary")
	seed.AddCommand(validate)
	return seed
}

func newJobsCommand() *cobra.Command {
	var redisAddr string
	jobsCmd := &cobra.Command{Use: "jobs", Short: "Notification queue helpers"}
	jobsCmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer c.Close()
			s, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(s)
		},
	}

	var channel string
	notifyCmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Queue a synthetic notification for the worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer c.Close()
			id, err := c.SendTestNotification(cmd.Context(), notify.Channel(channel))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", id)
			return nil
		},
	}
	notifyCmd.Flags().StringVar(&channel, "channel", string(notify.ChannelPush), "PUSH, EMAIL or SMS")

	var size int
	retry := &cobra.Command{
		Use:   "retry",
		Short: "List deliveries waiting for retry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer c.Close()
			tasks, err := c.ListRetry(cmd.Context(), size)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tretried=%d\t%s\n", t.ID, t.Type, t.Retried, t.LastErr)
			}
			return nil
		},
	}
	retry.Flags().IntVar(&size, "size", 10, "page size")

	jobsCmd.AddCommand(stats, notifyCmd, retry)
	return jobsCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
