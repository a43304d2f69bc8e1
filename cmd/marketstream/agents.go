package main

import (
	"github.com/spf13/cobra"

	"github.com/BaSui01/marketstream/agent"
	"github.com/BaSui01/marketstream/llm"
)

// newClient wraps provider with the configured model settings and metrics.
func (a *app) newClient(provider llm.Provider) *llm.Client {
	client := llm.NewClient(provider, a.cfg.Agent.LLM(), a.logger)
	if a.metrics != nil {
		client.WithRecorder(a.metrics)
	}
	return client
}

// agentOptions returns the options every agent of this process shares.
func (a *app) agentOptions() []agent.Option {
	opts := []agent.Option{
		agent.WithLogger(a.logger),
		agent.WithTracerProvider(a.telemetry.TracerProvider()),
	}
	if a.metrics != nil {
		opts = append(opts, agent.WithRecorder(a.metrics))
	}
	return opts
}

// newAssistant builds the configured assistant over provider.
func (a *app) newAssistant(provider llm.Provider, systemPrompt string) (*agent.Agent, error) {
	if systemPrompt == "" {
		systemPrompt = a.cfg.Agent.SystemPrompt
	}
	return agent.NewAssistant(a.cfg.Agent.Name, a.newClient(provider), systemPrompt, a.agentOptions()...)
}

// newUserProxy builds the configured user proxy. Human input, when the
// mode asks for it, is read from the command's stdin.
func (a *app) newUserProxy(cmd *cobra.Command) (*agent.Agent, error) {
	policy, err := a.cfg.UserProxy.Policy()
	if err != nil {
		return nil, err
	}
	opts := a.agentOptions()
	if word := a.cfg.UserProxy.TerminationWord; word != "" {
		opts = append(opts, agent.WithTermination(agent.ContainsTermination(word)))
	}
	if policy.HumanInputMode != agent.HumanInputNever {
		opts = append(opts, agent.WithHumanInput(newLineInput(cmd.InOrStdin(), cmd.OutOrStdout())))
	}
	return agent.NewUserProxy(a.cfg.UserProxy.Name, policy, opts...)
}
