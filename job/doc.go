// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package job 实现生成任务的提交与轮询。

# 概述

平台的生成接口是异步的：提交工作流得到任务 ID，随后以固定间隔
轮询状态直到任务进入终态。本包将这两步拆分为 Submitter 与 Poller
两个独立组件，由上层 client 包编排。

# 核心类型

  - Submitter — 组装工作流请求并提交，返回任务 ID。素材引用在
    提交边界解析：裸存储 key 统一改写为 storageBase 下的绝对 URL，
    已是完整 URL 的引用原样透传。
  - Poller   — 状态轮询器。默认预算 60 次尝试、间隔 3 秒，
    均可配置；零值回落到默认值。
  - Result   — 终态结果：任务 ID、首张可用图像 URL、状态与平台消息。

# 主要能力

  - 终态判定完全基于状态枚举的 Terminal() 属性，控制流不做
    消息文本匹配。
  - Failed / Timeout 一经观测立即停止并返回携带状态枚举的结构化
    错误，平台给出的原因原样保留，绝不重试。
  - Success 但无可用图像 URL 视为 EMPTY_RESULT 错误而非成功。
  - 瞬态传输错误消耗尝试次数后继续轮询；预算耗尽返回
    MAX_ATTEMPTS_REACHED。
  - 轮询间隔经 select 等待，随时响应 ctx 取消。
*/
package job
