package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/agent/conversation"
	"github.com/BaSui01/marketstream/llm"
)

// newGroupChatCmd runs a group chat between the user proxy and the assistant.
func newGroupChatCmd(a *app) *cobra.Command {
	var (
		maxRound  int
		selection string
		message   string
	)

	cmd := &cobra.Command{
		Use:   "groupchat",
		Short: "Run a group chat between the user proxy and the assistant",
		Long: `Run a managed group chat. The manager broadcasts every message, picks the
next speaker and stops at max round, on the termination word, or when a
speaker has nothing to say.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gcc := a.cfg.GroupChat
			if cmd.Flags().Changed("max-round") {
				gcc.MaxRound = maxRound
			}
			if cmd.Flags().Changed("selection") {
				gcc.SpeakerSelection = selection
			}
			if cmd.Flags().Changed("message") {
				gcc.InitialMessage = message
			}
			method, err := conversation.ParseSpeakerSelection(gcc.SpeakerSelection)
			if err != nil {
				return err
			}

			offline := &llm.OfflineProvider{TerminateWord: gcc.TerminationWord}
			assistant, err := a.newAssistant(offline, gcc.SystemPrompt)
			if err != nil {
				return fmt.Errorf("create assistant: %w", err)
			}
			user, err := a.newUserProxy(cmd)
			if err != nil {
				return fmt.Errorf("create user proxy: %w", err)
			}

			gc, err := conversation.NewGroupChat([]agent.Conversable{user, assistant}, nil, gcc.MaxRound, method)
			if err != nil {
				return err
			}
			opts := []conversation.ManagerOption{
				conversation.WithLogger(a.logger),
				conversation.WithMeterProvider(a.telemetry.MeterProvider()),
			}
			if gcc.TerminationWord != "" {
				opts = append(opts, conversation.WithTermination(conversation.TerminationContains(gcc.TerminationWord)))
			}
			if method == conversation.SelectAuto {
				opts = append(opts, conversation.WithLLM(a.newClient(&llm.OfflineProvider{})))
			}
			manager, err := conversation.NewManager(gc, opts...)
			if err != nil {
				return err
			}

			a.logger.Info("starting group chat",
				zap.Int("max_round", gcc.MaxRound),
				zap.String("selection", string(method)),
			)
			result, err := user.InitiateChat(cmd.Context(), manager, gcc.InitialMessage)
			if err != nil {
				return fmt.Errorf("run group chat: %w", err)
			}

			out := cmd.OutOrStdout()
			printTranscript(out, gc.History())
			run := manager.LastRun()
			fmt.Fprintln(out, "---")
			fmt.Fprintf(out, "Rounds: %d  Stop: %s  Last speaker: %s\n", run.Rounds, run.StopReason, run.LastSpeaker)
			fmt.Fprintf(out, "Summary: %s\n", result.Summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRound, "max-round", 0, "Maximum number of messages (default from config)")
	cmd.Flags().StringVar(&selection, "selection", "", "Speaker selection: round_robin, random, auto (default from config)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Opening message (default from config)")
	return cmd
}
