package agent

import "errors"

var (
	// ErrLLMNotSet 未配置 LLM 客户端
	ErrLLMNotSet = errors.New("llm client not set")

	// ErrCodeExecutionUnsupported 不支持代码执行
	ErrCodeExecutionUnsupported = errors.New("code execution is not supported")

	// ErrHumanInputRequired 当前人工输入模式需要 HumanInput
	ErrHumanInputRequired = errors.New("human input mode requires a HumanInput source")

	// ErrInvalidHumanInputMode 人工输入模式无效
	ErrInvalidHumanInputMode = errors.New("invalid human input mode")

	// ErrEmptyName Agent 名称为空
	ErrEmptyName = errors.New("agent name is empty")

	// ErrNilRecipient 接收方为空
	ErrNilRecipient = errors.New("recipient is nil")
)
