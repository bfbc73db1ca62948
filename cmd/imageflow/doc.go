// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ImageFlow 命令行工具入口。

# 概述

cmd/imageflow 是 ImageFlow SDK 的可执行入口，封装图像生成平台的完整
流程：本地图像上传、工作流任务提交与结果轮询。程序支持 YAML 配置文件
加载、环境变量覆盖、结构化日志（zap）以及 OpenTelemetry 链路追踪。

# 主要能力

  - 子命令：generate（上传并生成）、status（查询任务）、history（本地记录）、version
  - generate：--file 上传本地图像，或 --image 引用已有素材（存储 key 或 URL）；
    --output 把生成结果下载到本地文件
  - status：按 generateUuid 查询一次任务状态，不进入轮询
  - history：查看最近运行记录，--purge 按时间清理过期条目
  - 信号处理：SIGINT/SIGTERM 取消进行中的轮询并退出
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
