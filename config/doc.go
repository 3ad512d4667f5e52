// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package config 提供 Overmind 的配置管理功能。
//
// 支持从 YAML 文件和环境变量加载配置，
// 优先级为：默认值 → YAML 文件 → 环境变量。
// 覆盖路由策略、策略注册表、执行管理器、Agent/Crew 默认值、
// 分层记忆与日志等全部子系统。
package config
