// Package files 处理聊天附件上传。
//
// 上传内容经过大小与类型校验后写入 Storage，生产环境使用 MinIO，测试使用内存实现。
package files
