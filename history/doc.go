// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 history 提供基于 GORM + SQLite 的本地生成历史存储。

# 概述

每次图像生成任务结束（成功或失败）后，客户端可以把最终结果写入
本地 SQLite 数据库，便于 CLI 查询最近的任务、按任务 ID 回溯结果，
以及定期清理过期记录。存储是可选的：库本身不依赖它，未配置时
客户端直接跳过记录。

# 核心类型

  - Run：一次生成任务的持久化记录，包含任务 ID、模板 ID、终态、
    结果 URL、失败原因与耗时。
  - Store：仓库封装，持有 GORM DB 实例并提供查询与清理方法。
  - Config：存储配置（是否启用、数据库文件路径）。

# 主要能力

  - 打开即迁移：Open 通过 AutoMigrate 保证表结构最新。
  - 记录：Save 写入一条终态记录，自动补全 ID 与创建时间。
  - 查询：Recent 按创建时间倒序返回最近 N 条；
    FindByGenerateID 按平台任务 ID 精确查找。
  - 清理：Purge 删除早于给定时间的记录，返回删除条数。
*/
package history
