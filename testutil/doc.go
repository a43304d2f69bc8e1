// Copyright 2026 marketstream Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 marketstream 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 断言工具: AssertMessagesEqual / AssertEventuallyTrue
  - 消息工具: Contents 提取消息正文，便于断言

# 子包

  - testutil/mocks: MockProvider（脚本化 LLM Provider），支持固定响应、
    按序响应、错误注入与调用记录

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponses("first", "second")
	client := llm.NewClient(provider, llm.Config{Model: "mock"}, nil)
*/
package testutil
