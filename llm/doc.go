// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供最小的大语言模型接入层：Provider 抽象、带缓存与用量统计的
Client，以及完全离线的确定性 Provider。

# 概述

上层 Agent 只依赖 [Client]。Client 绑定一个 [Provider] 和一份 [Config]，
负责超时控制、按 cache seed 缓存响应、累计用量并上报指标。

# 核心接口

  - [Provider]：Name / Completion
  - [Recorder]：每次调用上报 provider、model、状态、耗时、token 与费用

# 核心类型

  - [ChatRequest] / [ChatResponse]：请求与响应
  - [Config]：模型、温度、超时、cache seed 与每千 token 价格
  - [Usage] / [UsageTracker]：请求数、缓存命中、token 与费用累计
  - [OfflineProvider]：按行前缀抽取要点的确定性 Provider，不访问网络

# 缓存

CacheSeed 非 0 时，相同 seed、模型、温度与消息的请求直接返回缓存结果，
缓存命中不计费，只增加 CachedRequests。

# Token 估算

[EstimateTokens] 按字符类别离线估算 token 数，CJK 字符单独计数。
*/
package llm
