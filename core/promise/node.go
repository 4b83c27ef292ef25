package promise

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/asynchttp/core/dispatch"
	"github.com/dmitrymomot/asynchttp/core/exec"
)

// result is the type-erased value flowing between nodes: either a value
// or an error, never both, matching the "exactly one of on_fulfill /
// on_refused fires" rule.
type result struct {
	val any
	err error
}

// chainState is shared by every node in one chain, so that Done (called
// on the tail) can start the head exactly once. A second Done call finds
// started already true and panics, matching the chain's "double start
// is a fatal programming error" contract.
type chainState struct {
	started atomic.Bool
	head    *node
}

// node is the type-erased unit of the promise graph. Stage holds the
// closure that turns an incoming result into an outgoing one; next is
// set by Then/ThenHandler before the chain is started. Both fields are
// only mutated before Done is called, so no lock is required once the
// chain is running — the mutex below guards the narrow window where a
// caller builds the chain.
type node struct {
	target     exec.Context
	dispatcher *dispatch.Dispatcher
	chain      *chainState
	stage      func(in result) result

	mu   sync.Mutex
	next *node

	// drive overrides how the chain head is kicked off from cold. A nil
	// drive means "post a Callable that runs stage", the synchronous
	// Task path; AsyncTask heads set drive to post a dedicated worker
	// instead, since their result arrives later through a Promisee.
	drive func()
}

func newHead(target exec.Context, stage func(in result) result) *node {
	cs := &chainState{}
	n := &node{target: target, dispatcher: currentDispatcher(), chain: cs, stage: stage}
	cs.head = n
	return n
}

func (n *node) setNext(next *node) {
	if n.chain.started.Load() {
		panic(ErrAlreadyStarted)
	}
	n.mu.Lock()
	n.next = next
	n.mu.Unlock()
}

// start drives the chain head. The caller (Promise.Done) is responsible
// for claiming chain.started before calling this.
func (n *node) start() {
	if n.drive != nil {
		n.drive()
		return
	}
	n.post(n.target, result{})
}

// arrive runs this node's stage once the goroutine calling it is
// confirmed to be on target. If active does not match, the call is
// rewritten into a post that will call arrive again once it lands on
// the right destination.
func (n *node) arrive(active exec.Context, in result) {
	if !active.Equal(n.target) {
		n.post(active, in)
		return
	}

	out := n.stage(in)

	n.mu.Lock()
	next := n.next
	n.mu.Unlock()

	if next == nil {
		return
	}
	// active is now n.target, since the stage just ran here; if next's
	// target is the same, this recurses inline rather than hopping.
	next.arrive(n.target, out)
}

func (n *node) post(_ exec.Context, in result) {
	_ = n.dispatcher.Post(dispatch.CallableFunc(func() {
		n.arrive(n.target, in)
	}), n.target)
}
