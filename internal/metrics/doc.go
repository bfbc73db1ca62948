// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的全链路指标采集能力，覆盖
网关调用、素材上传、任务轮询与缓存四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - 网关指标：签名代理调用总数与耗时，按 path/status 分组，
    status 取 ok 或错误码。
  - 上传指标：上传总数（成功/失败）与累计上传字节数。
  - 任务指标：轮询次数按观测到的任务状态分组；任务终态结果计数
    与端到端耗时直方图。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
*/
package metrics
