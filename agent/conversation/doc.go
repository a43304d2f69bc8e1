// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 提供多智能体群聊编排能力。

# 概述

conversation 解决"多个 Agent 在同一对话中谁先说、谁后说、何时终止"
的问题。GroupChat 保存参与者、共享消息日志、最大轮次与发言人选择策略；
Manager 本身也是一个 agent.Conversable，向它发送一条请求回复的消息
即会驱动整场群聊。

# 核心接口

  - SpeakerSelector：发言人选择器接口，决定下一轮由哪个参与者发言

# 主要能力

  - 发言人选择：round_robin（轮询）、random（随机）、
    auto（由 LLM 选择，失败或无法解析时回退为轮询）
  - 终止条件：达到 MaxRound 条消息、终止谓词命中、
    或被选中的发言人不再回复
  - 广播：每条消息转发给除发言人外的所有参与者，参与者各自维护
    与 Manager 之间的历史
  - 指标：每轮通过 OpenTelemetry Int64Counter 计数

# 内置实现

  - RoundRobinSelector：取上一位发言人之后的参与者
  - RandomSelector：可设种子的均匀随机选择
  - LLMSelector：基于 llm.Client 的智能选择
*/
package conversation
