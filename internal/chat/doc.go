// Package chat 实现会话、历史、投票与可恢复流式输出等业务逻辑。
//
// 流式响应以 UI message stream 帧的形式输出，每一帧同时写入 StreamBuffer，
// 客户端断线后可以通过 Resume 重放。
package chat
