package telegram

import (
	"context"
	"sync"

	"github.com/MimeLyc/srt-translate-bot/internal/bot"
)

// chatDispatcher runs events of one chat in arrival order on a single
// goroutine while different chats proceed in parallel.
type chatDispatcher struct {
	handle HandleFunc

	mu     sync.Mutex
	queues map[int64][]queuedEvent
	wg     sync.WaitGroup
}

type queuedEvent struct {
	ctx context.Context
	ev  bot.Event
}

func newChatDispatcher(handle HandleFunc) *chatDispatcher {
	return &chatDispatcher{
		handle: handle,
		queues: make(map[int64][]queuedEvent),
	}
}

// dispatch queues ev behind the pending events of its chat and starts a
// drain goroutine when the chat was idle.
func (d *chatDispatcher) dispatch(ctx context.Context, ev bot.Event) {
	d.mu.Lock()
	pending, busy := d.queues[ev.ChatID]
	d.queues[ev.ChatID] = append(pending, queuedEvent{ctx: ctx, ev: ev})
	if !busy {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if !busy {
		go d.drain(ev.ChatID)
	}
}

func (d *chatDispatcher) drain(chatID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		pending := d.queues[chatID]
		if len(pending) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		next := pending[0]
		d.queues[chatID] = pending[1:]
		d.mu.Unlock()

		d.handle(next.ctx, next.ev)
	}
}

// wait blocks until every dispatched event has been handled
func (d *chatDispatcher) wait() {
	d.wg.Wait()
}
