package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lorebot/lore/internal/log"
	"github.com/lorebot/lore/internal/query"
)

// User-facing message texts.
const (
	placeholderText   = "Searching the knowledge base…"
	emptyQuestionText = "Ask me a question about the docs or the codebase, e.g. `how do I configure the ingestion sources?`"
)

// maxErrorRunes bounds the error text shown to the user. Whatever the
// backend failed with, the chat message stays short and never carries a
// stack trace.
const maxErrorRunes = 200

// ErrBusy is returned by Submit when the question queue is full.
var ErrBusy = errors.New("too many questions in flight, try again shortly")

// Asker is the query entry point the dispatcher drives. The query
// engine satisfies it.
type Asker interface {
	AskWithRetry(ctx context.Context, question string) (*query.Result, error)
}

type task struct {
	channelID string
	question  string
}

// Dispatcher runs questions on a bounded worker pool. Each question is
// acknowledged immediately with a placeholder message; the eventual
// answer (or a short error) replaces that placeholder. Questions are
// independent; no ordering holds between in-flight ones.
type Dispatcher struct {
	engine    Asker
	messenger Messenger
	logger    log.Logger
	workers   int

	tasks chan task
	wg    sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given pool size. The queue
// holds one pending question per worker beyond those executing.
func NewDispatcher(engine Asker, messenger Messenger, workers int, logger log.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Dispatcher{
		engine:    engine,
		messenger: messenger,
		logger:    logger,
		workers:   workers,
		tasks:     make(chan task, workers),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled or
// Stop closes the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for range d.workers {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop closes the queue and waits for in-flight questions to finish.
func (d *Dispatcher) Stop() {
	close(d.tasks)
	d.wg.Wait()
}

// Submit queues a question for a channel. Returns ErrBusy when the pool
// is saturated; the caller decides how to surface that.
func (d *Dispatcher) Submit(channelID, question string) error {
	select {
	case d.tasks <- task{channelID: channelID, question: question}:
		return nil
	default:
		return ErrBusy
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.tasks:
			if !ok {
				return
			}
			d.handle(ctx, t)
		}
	}
}

// handle runs one question end to end: placeholder, query, update.
func (d *Dispatcher) handle(ctx context.Context, t task) {
	question := strings.TrimSpace(t.question)
	if question == "" {
		if _, err := d.messenger.PostMessage(ctx, t.channelID, emptyQuestionText); err != nil {
			d.logger.Warn("failed to post usage hint", "channel", t.channelID, "error", err)
		}
		return
	}

	ref, err := d.messenger.PostMessage(ctx, t.channelID, placeholderText)
	if err != nil {
		d.logger.Error("failed to post placeholder", "channel", t.channelID, "error", err)
		return
	}

	res, err := d.engine.AskWithRetry(ctx, question)

	var text string
	if err != nil {
		d.logger.Error("question failed", "channel", t.channelID, "error", err)
		text = "Sorry, something went wrong: " + truncateError(err)
	} else {
		text = FormatAnswer(res)
	}

	if err := d.messenger.UpdateMessage(ctx, ref, text); err != nil {
		d.logger.Error("failed to update answer", "channel", t.channelID, "error", err)
	}
}

func truncateError(err error) string {
	msg := err.Error()
	runes := []rune(msg)
	if len(runes) <= maxErrorRunes {
		return msg
	}
	return string(runes[:maxErrorRunes]) + "..."
}
