// 版权所有 2025 Overmind Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 memory 实现分层记忆存储：短期、工作、长期三层。

# 三层结构

  - 短期（ShortTerm）：带 TTL 的有界会话消息缓冲。add 先清除过期条目再追加，
    超出容量时丢弃最旧的一条。
  - 工作（Working）：任务范围的键值上下文，每个条目带重要性标记，
    支持 set/get/has/delete/clear。
  - 长期（LongTerm）：记忆条目、实体与情节的持久层，支持文本检索、
    重要性/时间过滤与过期清理。底层存储是一个接口（Store），
    提供内存实现与 Redis 实现两种。

# 固化

Tiered 按固定间隔把短期层中重要性不低于 medium 的条目固化为长期情节记忆，
随后运行一次过期清理。

# 检索

Search 合并三层的命中结果，按固定的层权重打分
（working=1.0、long-term=0.9、short-term=0.8），得分降序截断到请求的上限。

# 并发

各层内部用互斥锁保护自身状态，可以被多个 goroutine 并发调用；
长期层的持久化调用全部带 context.Context。
*/
package memory
