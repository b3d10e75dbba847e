// Package store 定义 DeFi Agent 的领域实体与仓储接口，并提供一个基于内存的实现，
// 供开发环境与测试使用。SQL 实现位于 internal/storage/sqldb。
package store
