package usecase

import (
	"context"
	"sync"

	"github.com/appu-labs/appu/pkg/domain/types"
)

// childLocks hands out one lock per child. Entries are dropped once nobody
// holds or waits for them.
type childLocks struct {
	mu    sync.Mutex
	locks map[types.ChildID]*childLock
}

type childLock struct {
	sem  chan struct{}
	refs int
}

// lock blocks until childID is free or ctx is done. The returned func
// releases the lock.
func (l *childLocks) lock(ctx context.Context, childID types.ChildID) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[types.ChildID]*childLock)
	}
	cl, ok := l.locks[childID]
	if !ok {
		cl = &childLock{sem: make(chan struct{}, 1)}
		l.locks[childID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	select {
	case cl.sem <- struct{}{}:
		return func() {
			<-cl.sem
			l.release(childID, cl)
		}, nil
	case <-ctx.Done():
		l.release(childID, cl)
		return nil, ctx.Err()
	}
}

func (l *childLocks) release(childID types.ChildID, cl *childLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, childID)
	}
}
