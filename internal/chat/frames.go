package chat

import (
	jsoniter "github.com/json-iterator/go"
)

var frameJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Frame types of the UI message stream protocol.
const (
	FrameStart         = "start"
	FrameStartStep     = "start-step"
	FrameTextStart     = "text-start"
	FrameTextDelta     = "text-delta"
	FrameTextEnd       = "text-end"
	FrameFinishStep    = "finish-step"
	FrameFinish        = "finish"
	FrameError         = "error"
	FrameDataID        = "data-id"
	FrameAppendMessage = "data-appendMessage"
)

// Frame 是流式输出中的一帧。
type Frame struct {
	Type         string `json:"type"`
	ID           string `json:"id,omitempty"`
	MessageID    string `json:"messageId,omitempty"`
	Delta        string `json:"delta,omitempty"`
	Data         any    `json:"data,omitempty"`
	Transient    bool   `json:"transient,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
	ErrorText    string `json:"errorText,omitempty"`
}

// EncodeFrame 将帧编码为 JSON。
func EncodeFrame(f Frame) ([]byte, error) {
	return frameJSON.Marshal(f)
}

// Emitter 接收编码后的帧，通常是一个 SSE 连接。
type Emitter interface {
	Send(frame []byte) error
}

// EmitterFunc 将普通函数适配为 Emitter。
type EmitterFunc func(frame []byte) error

// Send 实现 Emitter。
func (f EmitterFunc) Send(frame []byte) error { return f(frame) }
