// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供生成结果的可选缓存，避免对相同模板与参数组合
重复提交整条生成流水线。

# 概述

缓存键由模板 ID 与解析后的生成参数经规范化 JSON 取 SHA-256 派生，
与请求的字段顺序无关。命中的条目直接给出此前生成的图像 URL 与
任务状态，上层据此跳过提交与轮询。

# 核心类型

  - ResultCache：缓存接口（Get / Set / Close），由 client 包消费。
  - Entry：缓存条目，含任务 ID、图像 URL、终态与写入时间。
  - Memory：进程内 LRU 实现，容量与 TTL 可配，零依赖。
  - Redis：基于 go-redis 的共享缓存实现，构造时 Ping 校验连接，
    支持后台健康检查与优雅关闭。

# 主要能力

  - 键派生：Key(templateID, params) 生成确定性缓存键。
  - 错误语义：提供 ErrCacheMiss 哨兵错误与 IsCacheMiss 判断函数。
  - 仅缓存成功终态；失败与超时永不进入缓存。
*/
package cache
