// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 policy 对路由决策执行 (team, persona) 级别的准入校验与替换。

# 概述

策略注册表（外部协作者）按 (team, persona) 维护两类允许项：
本地模型与上游路由标识。Enforcer 只做查表校验；
当决策不合规时按固定顺序尝试替换：

 1. 本地后端可用时，按顺序尝试允许的本地模型；
 2. 按顺序尝试允许的上游标识映射到的具体后端；
 3. 均不合规时以 POLICY_VIOLATION 失败。
*/
package policy
