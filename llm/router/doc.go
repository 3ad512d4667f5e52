// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 router 提供复杂度分类与多策略模型路由。

# 概述

给定一个提示词与路由策略，本包先对任务复杂度分级
（simple / moderate / complex / strategic），再在按层级固定的
候选能力表上执行选择策略，产出不可变的路由决策。

# 策略

  - cost_optimized：可用候选按估算成本升序，优先能力分 >= 7。
  - latency_optimized：可用候选中已知延迟最小者。
  - cascading：按输入成本升序，每次重试升级一档。
  - local_first：本地后端可用且满足量级或节省阈值时选本地，否则回退云端成本优先。
  - predictive：0.5*能力 + 0.3*(1/成本) + 0.2*(1/延迟秒) 取最大。

所有策略在没有任何可用后端时返回 PROVIDER_UNAVAILABLE。

# 复杂度分级

关键词优先级是硬性裁决而非打分：
strategic 关键词 > complex 关键词 > simple 指征（短提示或定义式开头）> moderate 兜底。
*/
package router
