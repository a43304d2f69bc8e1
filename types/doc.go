// Copyright (c) marketstream Authors.
// Licensed under the MIT License.

/*
Package types 提供 marketstream 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、conversation、
bridge、llm 等上层模块提供统一的消息与错误契约，避免循环依赖。

# 核心类型

  - Message：对话消息（Role、Name、Content、Metadata）
  - Role：消息角色（system / user / assistant）
  - Error / ErrorCode：结构化错误体系，含错误码与 Cause 链
*/
package types
