package chat_test

import (
	"errors"
	"sync"
)

// fakeConn records enqueued fields for assertions. It implements
// chat.Conn.
type fakeConn struct {
	addr string

	mu      sync.Mutex
	records [][]string
	stopped bool
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{addr: addr}
}

func (f *fakeConn) Enqueue(record string) error {
	return f.EnqueueFields(record)
}

func (f *fakeConn) EnqueueFields(fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record := make([]string, len(fields))
	copy(record, fields)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeConn) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return errors.New("already stopped")
	}
	f.stopped = true
	return nil
}

func (f *fakeConn) RemoteAddr() string {
	return f.addr
}

func (f *fakeConn) Records() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([][]string, len(f.records))
	copy(records, f.records)
	return records
}

func (f *fakeConn) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
