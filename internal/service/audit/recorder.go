package audit

import (
	"context"
	"sync"
)

// Recorder 内存 Sink，测试和本地调试用
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder 创建内存 Sink
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record 记录事件
func (r *Recorder) Record(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events 已记录事件的副本
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Actions 已记录事件的动作序列
func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		actions = append(actions, evt.Action)
	}
	return actions
}
