package api

import (
	"net/http"
	"sync"
)

// sseWriter 实现 chat.Emitter。响应头在写出第一帧时才发送，
// 因此第一帧之前的错误仍可以渲染为普通 JSON 错误。
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) begin() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// Send 写出一帧 data: <json>。
func (s *sseWriter) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begin()
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Started 报告是否已经写出响应头。
func (s *sseWriter) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Done 写出结束标记。没有任何帧时仍会返回一个空的事件流。
func (s *sseWriter) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begin()
	_, _ = s.w.Write([]byte("data: [DONE]\n\n"))
	_ = s.rc.Flush()
}
