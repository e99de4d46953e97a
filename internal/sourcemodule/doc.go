// Package sourcemodule 聚合各类目录源（通用 HTTP 目录、modland、scene.org 等）的静态描述，
// 并提供统一的注册入口。
//
// 模块作者需要：
//  1. 在 internal/sourcemodule/<module-key>/ 目录下描述默认镜像与路径分类；
//  2. 通过本包暴露的 MustRegister 在 init() 中注册模块元数据；
//  3. 在 main 中匿名导入模块包，使 [[Source]] 的 Type 可以引用它。
//
// TTL 按资源类别固定在代码中，不支持运行时配置。
package sourcemodule
