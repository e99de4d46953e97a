// Package cache 保存文件内容正文：StoragePath/<source>/blobs/<path>。
//
// 正文先写入同目录临时文件（Stage），由持久化事务在提交后发布（rename），
// 回滚时丢弃，保证元数据与正文同进同退。文件大小与修改时间由文件系统提供。
package cache
