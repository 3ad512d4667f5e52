// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 providers 提供若干后端的 llm.Provider 实现。

引擎核心只面向 llm.Provider 契约，这里是具体的传输适配：

  - openaicompat：OpenAI 兼容的 chat completions 协议，
    覆盖 OpenAI、DeepSeek、GLM 等按同一协议暴露的后端。
  - anthropic：Anthropic Messages 协议（x-api-key 认证、
    system 消息单独传递）。
  - ollama：本地 Ollama 的原生 /api/chat 协议。

所有实现把 HTTP 层错误映射为 types.Error，可重试性由状态码决定。
*/
package providers
