// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义统一的模型调用契约。

# 概述

编排引擎将所有推理后端（本地或云端）视为同一个抽象 Provider，
从不感知任何具体后端的网络协议。具体网络客户端由宿主进程注入。

# 契约

  - Provider：Completion 同步调用 + HealthCheck 探活 + Name 标识。
  - ChatRequest / ChatResponse：与后端无关的请求与应答结构。

路由层（llm/router）只依赖本包的 Provider 契约做可用性探测，
真正的请求发起由 agent 层完成。
*/
package llm
