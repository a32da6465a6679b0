package ws

import "sync"

// Registry 在线订阅者注册表：recipient id → 存活连接集合。
// The only hot shared mutable structure in the pipeline; every mutation and
// read goes through the lock. Sessions register themselves on open and
// unregister exactly once on close.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[int64]map[*Session]struct{}{}}
}

// Register 把连接挂到收件人主题下。
// A session belongs to exactly one recipient (its own recipientID), so the
// "at most one recipient per connection" invariant holds by construction.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.recipientID]
	if !ok {
		set = map[*Session]struct{}{}
		r.sessions[s.recipientID] = set
	}
	set[s] = struct{}{}
}

// Unregister 摘除该连接；重复调用是 no-op（断开竞态是常态，不报错）
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.recipientID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, s.recipientID)
	}
}

// ConnectionsFor 返回某收件人连接的时点快照，
// 遍历快照期间的并发注册/注销不影响投递迭代。
func (r *Registry) ConnectionsFor(recipientID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[recipientID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Count 某收件人的在线连接数
func (r *Registry) Count(recipientID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[recipientID])
}
