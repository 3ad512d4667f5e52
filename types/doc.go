// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 types 提供 Overmind 编排引擎的核心类型。

# 概述

本包是依赖层级最低的包，不依赖任何其他 Overmind 包，
其他包统一从这里引用共享类型，避免循环依赖。

# 核心模型

  - Task：工作单元，携带依赖、优先级与单调状态机。
  - ExecutionResult：单次执行的结构化结果。
  - Message / Role：会话消息与角色。
  - Error / ErrorCode：统一错误码与结构化错误。

# 状态机

Task 的状态转移是单调的：

	pending -> in_progress -> completed | failed

依赖未全部完成的任务不允许进入 in_progress，
非法转移返回 INVALID_TRANSITION 错误而不是 panic。
*/
package types
