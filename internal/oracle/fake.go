package oracle

import (
	"context"
	"sync"

	"twentyq/internal/game"
)

// FakeClient returns scripted responses for offline runs and tests.
// Each Consult pops the next queued response; an empty queue repeats
// the last entry so long games keep moving.
type FakeClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	last      string

	// Consults records every consultation for assertions.
	Consults []game.Transcript
}

func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{responses: responses, last: `{"thought":"scripted","action":"Is it a real person?"}`}
}

// QueueError makes the next Consult fail with err before any queued
// responses are consumed.
func (f *FakeClient) QueueError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *FakeClient) Name() string { return "FakeOracle" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Consult(ctx context.Context, transcript game.Transcript, instructions string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Consults = append(f.Consults, transcript)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	if len(f.responses) == 0 {
		return f.last, nil
	}
	out := f.responses[0]
	f.responses = f.responses[1:]
	f.last = out
	return out, nil
}
