// Package config 提供 MarketStream 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，
// 环境变量前缀默认为 MARKETSTREAM，并提供到 llm、agent、
// bridge 领域配置的转换方法。
package config
