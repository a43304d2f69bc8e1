package main

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/bridge"
	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/news"
	"github.com/BaSui01/marketstream/types"
)

// newStreamCmd runs the producer and the poll loop against an offline assistant.
func newStreamCmd(a *app) *cobra.Command {
	var (
		ticks       int
		interval    time.Duration
		latency     time.Duration
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream market news into a user proxy / assistant conversation",
		Long: `Start the news producer, open a chat between the user proxy and the
assistant, then keep forwarding freshly produced news to the assistant
until the producer finishes.

The assistant runs on an offline extractive model; nothing leaves the process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := a.cfg.Stream
			if cmd.Flags().Changed("ticks") {
				sc.Ticks = ticks
			}
			if cmd.Flags().Changed("interval") {
				sc.Interval = interval
			}
			if cmd.Flags().Changed("latency") {
				sc.PollLatency = latency
			}

			assistant, err := a.newAssistant(&llm.OfflineProvider{LinePrefix: news.SummaryPrefix}, "")
			if err != nil {
				return fmt.Errorf("create assistant: %w", err)
			}
			user, err := a.newUserProxy(cmd)
			if err != nil {
				return fmt.Errorf("create user proxy: %w", err)
			}

			opts := []bridge.SessionOption{bridge.WithLogger(a.logger)}
			if a.metrics != nil {
				opts = append(opts, bridge.WithRecorder(a.metrics))
			}
			session, err := bridge.NewSession(user, assistant, sc.Session(), opts...)
			if err != nil {
				return err
			}

			a.logger.Info("starting stream session",
				zap.Int("ticks", sc.Ticks),
				zap.Duration("interval", sc.Interval),
				zap.Duration("poll_latency", sc.PollLatency),
			)
			result, err := session.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run session: %w", err)
			}

			out := cmd.OutOrStdout()
			printTranscript(out, user.ChatMessages(assistant.Name()))
			fmt.Fprintln(out, "---")
			if result.Chat != nil {
				fmt.Fprintf(out, "Summary: %s\n", result.Chat.Summary)
			}
			usage := assistant.Usage()
			fmt.Fprintf(out, "Forwarded: %d  Drained: %d  Pending: %d\n", result.Forwarded, result.Drained, len(result.Pending))
			fmt.Fprintf(out, "Cost: %d requests, %d tokens, $%.4f\n", usage.Requests, usage.PromptTokens+usage.CompletionTokens, usage.Cost)

			if showMetrics && a.metrics != nil {
				fmt.Fprintln(out, "---")
				return a.metrics.WriteText(out, prometheus.DefaultGatherer)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 0, "Number of producer ticks (default from config)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Wait after each producer tick (default from config)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Simulated latency before each poll (default from config)")
	cmd.Flags().BoolVar(&showMetrics, "show-metrics", false, "Print collected Prometheus metrics when metrics are enabled")
	return cmd
}

// printTranscript writes one block per message as "name (role):" + content.
func printTranscript(w io.Writer, messages []types.Message) {
	for _, msg := range messages {
		name := msg.Name
		if name == "" {
			name = string(msg.Role)
		}
		fmt.Fprintf(w, "%s (%s):\n%s\n\n", name, msg.Role, msg.Content)
	}
}
