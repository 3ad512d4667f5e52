// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 orchestrator 提供任务分类与带恢复的执行管理。

# 分类

Classify 按关键词把任务映射到复杂度、预估时长、风险与重试策略，
并扫描领域关键词推导需要介入的团队列表。分类在每个执行尝试周期
只计算一次。

# 执行

ExecuteWithRecovery 构建执行上下文后循环尝试：

 1. 执行器与硬超时赛跑；超时产生 TIMEOUT 失败，底层调用被放弃而非取消。
 2. 成功结果按固定问题模式扫描（构建失败 / 测试失败 / Lint / 安全），
    命中且有自动修复时执行修复，修复成功则在结果中追加备注。
 3. 每次尝试写入执行历史。
 4. 失败按策略重试：immediate 无延迟；exponential 延迟 2^attempt 秒；
    escalation 与 none 不重试。

重试耗尽后返回失败结果而不是抛错；escalation 任务的单次失败
同样以失败结果交由调用方升级处理。
*/
package orchestrator
