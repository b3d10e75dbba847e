// Package api 暴露 DeFi Agent 的 HTTP 接口：认证、聊天流、历史、投票、文档、链接收藏、
// 文件上传、智能体目录与链上查询。
//
// 路由基于 chi，错误统一渲染为 dto.ErrorResponse，聊天回复以 SSE 推送。
package api
