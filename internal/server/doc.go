// Package server 承载 Fiber HTTP 服务：请求 ID 中间件、错误兜底，以及把配置中的
// [[Source]] 装配为 Catalog 并按名称索引的 SourceRegistry。
// 具体的浏览接口位于 internal/browse，诊断接口位于 internal/server/routes，
// 二者都只依赖这里导出的 NewApp / SourceRegistry / RequestID，保持出口精简。
package server
