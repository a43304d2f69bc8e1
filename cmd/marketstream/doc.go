// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 MarketStream 命令行入口。

# 概述

cmd/marketstream 基于 cobra 组织子命令，加载 YAML + 环境变量配置，
初始化结构化日志（zap）、OpenTelemetry 与可选的 Prometheus 指标，
然后在进程内运行新闻流会话或群聊。所有模型调用都走离线 Provider，
不会访问网络。

# 子命令

  - news：打印新闻 fixture 的 [start, end) 切片
  - stream：启动生产者，打开 user proxy 与 assistant 的对话并轮询转发新闻
  - groupchat：运行由 Manager 驱动的群聊
  - version：显示构建注入的版本信息

# 构建注入

Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
