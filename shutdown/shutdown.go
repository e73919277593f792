// Package shutdown runs cleanup hooks in priority order when the process
// is interrupted or finishes.
package shutdown

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

const (
	PriorityServer    = 0
	PriorityDefault   = 100
	PriorityRenderers = 200
)

type Hook struct {
	label    string
	priority int
	fn       func()
	index    int
}

type HookHeap []*Hook

func (h HookHeap) Len() int           { return len(h) }
func (h HookHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h HookHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *HookHeap) Push(x interface{}) {
	item := x.(*Hook)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *HookHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

var (
	hooks    HookHeap
	hooksMux sync.Mutex
)

// AddHook registers a hook with default priority
func AddHook(label string, fn func()) {
	AddHookWithPriority(label, PriorityDefault, fn)
}

// AddHookWithPriority registers a hook; lower priorities run first.
func AddHookWithPriority(label string, priority int, fn func()) {
	hooksMux.Lock()
	defer hooksMux.Unlock()
	heap.Push(&hooks, &Hook{label: label, priority: priority, fn: fn})
}

// Shutdown runs and clears all registered hooks. A panicking hook is
// logged and does not stop the others.
func Shutdown() {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	if len(hooks) == 0 {
		return
	}
	logger.Debugf("Executing %d shutdown hooks", len(hooks))
	for hooks.Len() > 0 {
		hook := heap.Pop(&hooks).(*Hook)
		logger.Debugf("Executing shutdown hook: %s (priority=%d)", hook.label, hook.priority)
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic in shutdown hook %s: %v", hook.label, r)
				}
			}()
			hook.fn()
		}()
	}
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM. The
// first signal cancels it so running work can stop between steps; a second
// one exits immediately. stop releases the signal handler.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived %s, stopping (press Ctrl+C again to force exit)\n", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		if _, ok := <-sigChan; ok {
			fmt.Fprintf(os.Stderr, "\nForce exit\n")
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
