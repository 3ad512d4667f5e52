// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 crew 把一组 Agent 和一个任务 DAG 组织为可执行的团队。

# 所有权

Crew 独占它创建期注册的 Agent 与 Task（按 id 索引的稳定集合），
生命周期内不跨 Crew 共享。

# 三种执行模式

  - sequential：按优先级降序逐个执行；任何依赖未完成直接让整次运行失败，
    且失败发生在任何执行器启动之前。
  - parallel：收集无依赖的待执行任务，按并发上限分批；
    批内 fan-out / await-all，一个任务失败中止本批剩余任务，
    已完成的前序批次不受影响。
  - hierarchical：唯一的 orchestrator 角色 Agent 先产出委派计划
    （JSON 子任务列表），计划完成后才派发子任务，子任务串行执行；
    子任务失败只记录日志不中止；计划解析失败时整个任务
    回退给任意一个 Agent。

所有模式都经由执行管理器（orchestrator.Manager）运行任务，
从而获得超时、重试与自动修复。
*/
package crew
