// Package agents 定义可注册的 DeFi 智能体。每个智能体提供系统提示词，并可
// 在对话前从链上读取钱包相关的上下文。
package agents
