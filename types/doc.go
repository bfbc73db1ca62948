// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ImageFlow 客户端的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 sign、gateway、upload、job、
client 等上层模块提供统一的类型契约。所有跨包共享的枚举、结构体和错误码
均定义于此，以避免循环依赖。

# 核心类型

  - Credentials       — 平台访问凭证（AccessKey + SecretKey），客户端生命周期内不可变
  - JobStatus         — 生成任务状态枚举（平台侧定义的 1..7 状态码），
    终态判定 Terminal() 是枚举的一等属性
  - AssetRef          — 素材引用的带标签联合（对象存储 key 或完整 URL），
    在提交边界显式解析，不做运行时类型探测
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、平台返回码、
    任务状态与 Retryable 标记

# 主要能力

  - 错误工具链：AsError / IsCode / IsRetryable / IsTerminalFailure
  - 终态语义：Failed / Timeout / Success 一经观测即停止轮询，
    控制流永不依赖错误消息文本
*/
package types
