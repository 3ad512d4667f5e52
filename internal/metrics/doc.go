// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供引擎内部的 Prometheus 指标收集。

覆盖路由决策、任务执行尝试、自动修复与 Agent 状态转移。
本包是 internal 包，不应被外部项目引用。
*/
package metrics
