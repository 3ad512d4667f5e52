// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package testutil 提供测试辅助函数与模拟实现。
//
// 包含上下文辅助与 mocks 子包（MockProvider、MockStore 等）。
// 仅供本仓库测试使用。
package testutil
