package progress

import "sync"

// Stream is the shared FIFO of progress messages between background build
// tasks (writers) and the UI's scheduling thread (reader).
//
// A readers-writer lock guards the queue; only the atomicity of Push and
// Next matters. Ordering is preserved per sender: a single task's messages
// are drained in the order it pushed them.
type Stream struct {
	mu       sync.RWMutex
	messages []Message
}

// NewStream returns an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

// Push appends one message to the back of the queue.
func (s *Stream) Push(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// Append pushes several messages as one atomic batch.
func (s *Stream) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	s.messages = append(s.messages, msgs...)
	s.mu.Unlock()
}

// Next pops the front message. The second result is false when the queue is
// empty; Next never blocks.
func (s *Stream) Next() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil, false
	}
	m := s.messages[0]
	s.messages = s.messages[1:]
	return m, true
}

// HasMessages reports whether the queue is non-empty.
func (s *Stream) HasMessages() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages) > 0
}
