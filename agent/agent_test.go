package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/marketstream/llm"
	"github.com/BaSui01/marketstream/testutil"
	"github.com/BaSui01/marketstream/testutil/mocks"
	"github.com/BaSui01/marketstream/types"
)

func testLLMConfig() llm.Config {
	cfg := llm.DefaultConfig()
	cfg.CacheSeed = 0
	return cfg
}

func newAssistant(t *testing.T, provider llm.Provider, opts ...Option) *Agent {
	t.Helper()
	client := llm.NewClient(provider, testLLMConfig(), zaptest.NewLogger(t))
	a, err := NewAssistant("assistant", client, "You are a helpful assistant.", opts...)
	require.NoError(t, err)
	return a
}

func newUserProxy(t *testing.T, maxReplies int, defaultReply *string, opts ...Option) *Agent {
	t.Helper()
	policy := DefaultAutoReplyPolicy()
	policy.MaxConsecutiveAutoReply = maxReplies
	policy.DefaultAutoReply = defaultReply
	u, err := NewUserProxy("user", policy, opts...)
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }

func TestNew_Validation(t *testing.T) {
	_, err := New("  ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewAssistant("assistant", nil, "")
	assert.ErrorIs(t, err, ErrLLMNotSet)
	assert.True(t, types.IsErrorCode(err, types.ErrLLMNotConfigured))

	policy := DefaultAutoReplyPolicy()
	policy.CodeExecution = true
	_, err = NewUserProxy("user", policy)
	assert.ErrorIs(t, err, ErrCodeExecutionUnsupported)

	policy = DefaultAutoReplyPolicy()
	policy.HumanInputMode = HumanInputAlways
	_, err = NewUserProxy("user", policy)
	assert.ErrorIs(t, err, ErrHumanInputRequired)
}

func TestAgent_BuiltinProviders(t *testing.T) {
	assistant := newAssistant(t, mocks.NewMockProvider())
	assert.Equal(t, []string{"llm"}, assistant.Chain().Providers())

	user := newUserProxy(t, 5, nil)
	assert.Equal(t, []string{"default_auto_reply"}, user.Chain().Providers())

	user.RegisterReply(NewReplyFunc("custom", func(context.Context, ReplyRequest) (Reply, error) {
		return Declined(), nil
	}), WithPriority(2))
	assert.Equal(t, []string{"custom", "default_auto_reply"}, user.Chain().Providers())
}

func TestAgent_SendRecordsBothSides(t *testing.T) {
	assistant := newAssistant(t, mocks.NewMockProvider())
	user := newUserProxy(t, 5, nil)
	ctx := testutil.TestContext(t)

	require.NoError(t, user.Send(ctx, types.NewUserMessage("hi"), assistant, false))

	sent := user.ChatMessages("assistant")
	require.Len(t, sent, 1)
	assert.Equal(t, types.RoleAssistant, sent[0].Role)
	assert.Equal(t, "user", sent[0].Name)

	received := assistant.ChatMessages("user")
	require.Len(t, received, 1)
	assert.Equal(t, types.RoleUser, received[0].Role)
	assert.Equal(t, "hi", received[0].Content)

	last, ok := assistant.LastMessage("user")
	require.True(t, ok)
	assert.Equal(t, "hi", last.Content)

	_, ok = assistant.LastMessage("nobody")
	assert.False(t, ok)
	assert.ErrorIs(t, user.Send(ctx, types.NewUserMessage("x"), nil, false), ErrNilRecipient)
}

func TestAgent_GenerateReplyUsesHistory(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("4")
	assistant := newAssistant(t, provider)
	user := newUserProxy(t, 5, nil)
	ctx := testutil.TestContext(t)

	require.NoError(t, user.Send(ctx, types.NewUserMessage("2+2=?"), assistant, false))

	reply, err := assistant.GenerateReply(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, "4", reply.Content)
	assert.Equal(t, "assistant", reply.Name)
	assert.Equal(t, 1, assistant.ConsecutiveAutoReplies("user"))

	req := provider.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, []string{"You are a helpful assistant.", "2+2=?"}, testutil.Contents(req.Messages))
	assert.Equal(t, types.RoleSystem, req.Messages[0].Role)
}

func TestAgent_MaxConsecutiveAutoReply(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("next")
	assistant := newAssistant(t, provider)
	user := newUserProxy(t, 2, strPtr("continue"))
	ctx := testutil.TestContext(t)

	res, err := user.InitiateChat(ctx, assistant, "start")
	require.NoError(t, err)

	// start, next, continue, next, continue, next
	assert.Len(t, res.History, 6)
	assert.Equal(t, 3, provider.CallCount())
	assert.Equal(t, 0, user.ConsecutiveAutoReplies("assistant"))
	assert.Equal(t, "next", res.Summary)
}

func TestAgent_TerminationStopsChat(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("All done. TERMINATE")
	assistant := newAssistant(t, provider)
	user := newUserProxy(t, 5, strPtr("continue"), WithTermination(ContainsTermination("TERMINATE")))

	res, err := user.InitiateChat(testutil.TestContext(t), assistant, "do it")
	require.NoError(t, err)
	assert.Len(t, res.History, 2)
	assert.Equal(t, "All done.", res.Summary)
}

func TestAgent_NilDefaultReplyEndsChat(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("hello").WithTokens(100, 50).WithCost(0.25)
	assistant := newAssistant(t, provider)
	user := newUserProxy(t, 5, nil)

	res, err := user.InitiateChat(testutil.TestContext(t), assistant, "hi")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ChatID)
	assert.Equal(t, []string{"hi", "hello"}, testutil.Contents(res.History))
	assert.Equal(t, 1, res.Cost.Requests)
	assert.Equal(t, 150, res.Cost.PromptTokens+res.Cost.CompletionTokens)
	assert.InDelta(t, 0.25, res.Cost.Cost, 1e-9)
}

func TestAgent_ReflectionSummaryUsesRecipientLLM(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses("- point one", "Markets rose.")
	assistant := newAssistant(t, provider)
	user := newUserProxy(t, 5, nil)

	res, err := user.InitiateChat(testutil.TestContext(t), assistant, "Summarize market dynamics in 3 bullet points.",
		WithSummaryMethod(SummaryReflectionWithLLM))
	require.NoError(t, err)
	assert.Equal(t, "Markets rose.", res.Summary)

	req := provider.LastRequest()
	require.NotNil(t, req)
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, types.RoleSystem, last.Role)
	assert.Equal(t, DefaultSummaryPrompt, last.Content)
	assert.Equal(t, 2, res.Cost.Requests)
}

func TestAgent_ReflectionSummaryWithoutLLM(t *testing.T) {
	left := newUserProxy(t, 5, strPtr("ok"))
	right, err := NewUserProxy("right", AutoReplyPolicy{MaxConsecutiveAutoReply: 1, HumanInputMode: HumanInputNever})
	require.NoError(t, err)

	_, err = left.InitiateChat(testutil.TestContext(t), right, "hi", WithSummaryMethod(SummaryReflectionWithLLM))
	assert.ErrorIs(t, err, ErrLLMNotSet)
}

func TestAgent_CustomSummaryAndUnknownMethod(t *testing.T) {
	assistant := newAssistant(t, mocks.NewMockProvider().WithResponse("x"))
	user := newUserProxy(t, 5, nil)
	ctx := testutil.TestContext(t)

	res, err := user.InitiateChat(ctx, assistant, "hi", WithSummaryFunc(func(_ context.Context, h []types.Message) (string, error) {
		return strings.Join(testutil.Contents(h), "|"), nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "hi|x", res.Summary)

	_, err = user.InitiateChat(ctx, assistant, "hi", WithSummaryMethod("poem"))
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestAgent_ClearHistory(t *testing.T) {
	assistant := newAssistant(t, mocks.NewMockProvider().WithResponse("x"))
	user := newUserProxy(t, 5, nil)
	ctx := testutil.TestContext(t)

	_, err := user.InitiateChat(ctx, assistant, "one")
	require.NoError(t, err)
	res, err := user.InitiateChat(ctx, assistant, "two", WithClearHistory(false))
	require.NoError(t, err)
	assert.Len(t, res.History, 4)

	res, err = user.InitiateChat(ctx, assistant, "three")
	require.NoError(t, err)
	assert.Len(t, res.History, 2)
	assert.Len(t, assistant.ChatMessages("user"), 2)
}

func TestAgent_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("upstream down")
	assistant := newAssistant(t, mocks.NewMockProvider().WithError(boom))
	user := newUserProxy(t, 5, nil)

	_, err := user.InitiateChat(testutil.TestContext(t), assistant, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, types.IsErrorCode(err, types.ErrReplyProviderFailed))
}

func TestAgent_HumanInputAlways(t *testing.T) {
	answers := []string{"", "use the human text", "exit"}
	var prompts int
	human := HumanInputFunc(func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "assistant")
		a := answers[prompts]
		prompts++
		return a, nil
	})

	policy := AutoReplyPolicy{MaxConsecutiveAutoReply: 10, HumanInputMode: HumanInputAlways, DefaultAutoReply: strPtr("auto")}
	user, err := NewUserProxy("user", policy, WithHumanInput(human))
	require.NoError(t, err)
	assistant := newAssistant(t, mocks.NewMockProvider().WithResponse("ack"))

	res, err := user.InitiateChat(testutil.TestContext(t), assistant, "hi")
	require.NoError(t, err)

	// hi, ack, auto(empty input), ack, human text, ack, exit
	assert.Equal(t, []string{"hi", "ack", "auto", "ack", "use the human text", "ack"}, testutil.Contents(res.History))
	assert.Equal(t, 3, prompts)
}

func TestAgent_HumanInputTerminate(t *testing.T) {
	var prompts int
	human := HumanInputFunc(func(context.Context, string) (string, error) {
		prompts++
		return "", nil
	})
	policy := AutoReplyPolicy{MaxConsecutiveAutoReply: 1, HumanInputMode: HumanInputTerminate, DefaultAutoReply: strPtr("auto")}
	user, err := NewUserProxy("user", policy, WithHumanInput(human))
	require.NoError(t, err)
	assistant := newAssistant(t, mocks.NewMockProvider().WithResponse("ack"))

	res, err := user.InitiateChat(testutil.TestContext(t), assistant, "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "ack", "auto", "ack"}, testutil.Contents(res.History))
	assert.Equal(t, 1, prompts)
}

func TestAgent_HumanInputError(t *testing.T) {
	human := HumanInputFunc(func(context.Context, string) (string, error) {
		return "", errors.New("stdin closed")
	})
	policy := AutoReplyPolicy{MaxConsecutiveAutoReply: 1, HumanInputMode: HumanInputAlways}
	user, err := NewUserProxy("user", policy, WithHumanInput(human))
	require.NoError(t, err)
	assistant := newAssistant(t, mocks.NewMockProvider())

	_, err = user.InitiateChat(testutil.TestContext(t), assistant, "hi")
	assert.True(t, types.IsErrorCode(err, types.ErrHumanInputUnavailable))
}

func TestAgent_RecorderAndSpans(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("RecordChatMessage", "assistant", "user").Return()
	rec.On("RecordReplyOutcome", "assistant", "llm", OutcomeHandled).Return()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assistant := newAssistant(t, mocks.NewMockProvider().WithResponse("ok"), WithRecorder(rec), WithTracerProvider(tp))
	user := newUserProxy(t, 5, nil)

	_, err := user.InitiateChat(testutil.TestContext(t), assistant, "hi")
	require.NoError(t, err)
	rec.AssertExpectations(t)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "agent.generate_reply", spans[0].Name())
	var source string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "reply.source" {
			source = kv.Value.AsString()
		}
	}
	assert.Equal(t, "llm", source)
}

func TestAgent_ResetPeer(t *testing.T) {
	assistant := newAssistant(t, mocks.NewMockProvider())
	user := newUserProxy(t, 5, nil)
	ctx := testutil.TestContext(t)

	require.NoError(t, user.Send(ctx, types.NewUserMessage("hi"), assistant, false))
	assert.Equal(t, []string{"assistant"}, user.Peers())

	user.ResetPeer("assistant")
	assert.Empty(t, user.ChatMessages("assistant"))
	assert.Empty(t, user.Peers())
}
