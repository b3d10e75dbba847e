// Package sqldb 基于 sqlx 实现 store.Repository，支持 MySQL 与 PostgreSQL，
// 并在启动时执行 deploy/migrations 中内嵌的 SQL 迁移。
package sqldb
