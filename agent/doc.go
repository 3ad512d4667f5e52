// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 agent 提供绑定人格的任务执行单元。

# 状态机

	idle -> thinking -> executing -> completed | failed

Reset 回到 idle 并把会话历史截断到人格前导消息。

# 执行

Execute 渲染结构化任务提示词，向路由器取得一次决策
（可选地按 (team, persona) 做策略校验与替换），
以有界重试与超时调用模型 Provider，并把 user/assistant
消息对追加进历史；历史始终保持前导 + 最近 10 条。

同一 Agent 的历史只在它自己的 Execute 调用内被修改；
不把同一个 Agent 同时分派给两个任务是 Crew 调度的职责。
*/
package agent
