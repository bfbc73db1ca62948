// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package client 是 ImageFlow 的顶层门面，把签名、网关、上传、
提交与轮询组装成一次可调用的生成流程。

# 概述

一次完整的生成包含三步：上传参考图（可选）、提交工作流运行、
轮询任务直到终态。Client 按配置装配好全部组件，调用方只需关心
GenerateRequest 与返回的 Result。结果缓存、生成历史与指标采集
都是可选能力，未配置时对应逻辑整体跳过。

# 核心类型

  - Client — 门面。New 按 config.Config 装配签名器、网关客户端、
    上传器、提交器与轮询器；functional options 覆盖单项依赖。
  - GenerateRequest — 一次生成的输入：模板 ID、参考图（文件字节
    或已有素材引用，二选一）与模板参数。
  - Recorder — 历史记录的窄接口，*history.Store 天然满足。

# 主要能力

  - Generate 串联上传→提交→轮询；素材引用型请求在触网前先查
    结果缓存，任务结束后尽力写入历史与缓存。
  - GenerateBatch 用 errgroup 并发轮询多个独立任务，并发度可配，
    各请求互不共享可变状态。
  - Status 单次状态查询，不等待终态。
  - Upload 单独上传素材，返回可复用的 AssetRef。
*/
package client
