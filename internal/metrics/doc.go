// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
LLM、Agent 回复链与新闻流三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。

# 核心类型

  - Collector：同时满足 llm.Recorder、agent.Recorder 与
    bridge.Recorder，可直接注入对应组件。

# 主要能力

  - LLM 指标：请求总数、请求耗时、Token 用量（prompt/completion）、
    调用成本，按 provider/model 分组。
  - Agent 指标：回复链中每个 Provider 的结果（handled/declined/
    skipped/error），以及按 sender/recipient 统计的消息数。
  - 新闻流指标：生产者 tick 数（按 init/append 路径）、
    被取走的新闻条数与批大小分布。
  - 导出：WriteText 以 Prometheus 文本格式输出本 namespace 的指标。
*/
package metrics
