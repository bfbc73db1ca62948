// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 gateway 封装平台反向代理的签名传输层，所有上层 API 调用
均经由本包发出。

# 概述

平台仅暴露单一代理入口：客户端将逻辑路径、签名参数与业务负载
打包为统一信封 {path, signatureParams, data} 后 POST 到该入口，
代理侧校验签名并转发。本包每次调用即时生成一次性签名（nonce
防重放），解析统一响应信封 {code, msg, data}，并将各类失败映射
为结构化错误。

# 核心类型

  - Client：签名传输客户端，持有签名器、HTTP 客户端、限流器
    与可选的指标收集器。
  - Option：构造选项（注入 HTTP 客户端、日志、QPS 限流、指标）。

# 主要能力

  - 信封编解码：业务负载按原样进入 data 字段，响应 data 原样返回
    json.RawMessage，由调用方解码。
  - 错误映射：网络失败 → TRANSPORT（可重试）；非 2xx HTTP →
    REMOTE_REJECTION（429/5xx 标记可重试）；信封 code != 0 →
    REMOTE_REJECTION（携带平台原始 code 与 msg）；信封解析失败 →
    TRANSPORT。
  - 可观测性：每次调用打 OTel span、记录 zap 日志与 Prometheus
    指标，自动附加 X-Request-ID。
  - 客户端限流：可选 QPS 上限（golang.org/x/time/rate），
    等待期间响应 ctx 取消。
*/
package gateway
