// Package redis 提供基于 Redis 的钱包 nonce 存储与可恢复流缓冲区。
// 未配置 REDIS_URL 时这些能力由内存实现替代。
package redis
