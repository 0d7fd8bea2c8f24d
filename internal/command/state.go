package command

import (
	"sync"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// Status is the executor lifecycle state of §4.E.
type Status int

const (
	New Status = iota
	Started
	Stopping
	Stopped
)

// LeadershipCallbacks are invoked by Start/Stop around leadership changes.
// Standalone executors are always "leader" of their own single replica;
// Replicated executors wire these to the replication log's leader election.
type LeadershipCallbacks struct {
	TakeLeadership   func()
	ReleaseLeadership func()
}

// lifecycle is embedded by both executor implementations to share the
// NEW -> STARTED -> STOPPING -> STOPPED state machine and the writable gate.
type lifecycle struct {
	mu       sync.RWMutex
	status   Status
	writable bool
	cb       LeadershipCallbacks
}

func (l *lifecycle) Start(cb LeadershipCallbacks) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cb = cb
	l.status = Started
	l.writable = true

	if cb.TakeLeadership != nil {
		cb.TakeLeadership()
	}
}

func (l *lifecycle) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.status = Stopping
	l.writable = false

	if l.cb.ReleaseLeadership != nil {
		l.cb.ReleaseLeadership()
	}

	l.status = Stopped
}

func (l *lifecycle) SetWritable(writable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writable = writable
}

func (l *lifecycle) StatusNow() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

func (l *lifecycle) checkWritable(forcePush bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.status != Started {
		return common.ValidateBusinessError(cn.ErrReadOnly, "", "executor is not started")
	}

	if !l.writable && !forcePush {
		return common.ValidateBusinessError(cn.ErrReadOnly, "")
	}

	return nil
}
