package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"twentyq/internal/game"
)

func TestRetryEventuallySucceeds(t *testing.T) {
	fake := NewFakeClient(`{"action":"Is it alive?"}`)
	fake.QueueError(errors.New("boom"))
	fake.QueueError(errors.New("boom again"))

	cli := Wrap(fake, Retry(3, time.Millisecond))
	out, err := cli.Consult(context.Background(), nil, Instructions)
	if err != nil {
		t.Fatalf("Consult error: %v", err)
	}
	if out != `{"action":"Is it alive?"}` {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(fake.Consults) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(fake.Consults))
	}
}

func TestRetryExhaustedSurfacesLastError(t *testing.T) {
	fake := NewFakeClient()
	fake.QueueError(errors.New("first"))
	fake.QueueError(errors.New("second"))

	cli := Wrap(fake, Retry(2, time.Millisecond))
	_, err := cli.Consult(context.Background(), nil, Instructions)
	if err == nil || err.Error() != "second" {
		t.Fatalf("expected last error, got %v", err)
	}
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	fake := NewFakeClient()
	fake.QueueError(errors.New("boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cli := Wrap(fake, Retry(5, 10*time.Millisecond))
	_, err := cli.Consult(ctx, nil, Instructions)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryRetriesPerAttemptTimeouts(t *testing.T) {
	// A timed-out attempt carries context.DeadlineExceeded, but only the
	// caller's own context may stop the loop.
	fake := NewFakeClient(`{"action":"Is it alive?"}`)
	fake.QueueError(errors.Join(ErrUnavailable, context.DeadlineExceeded))

	cli := Wrap(fake, Retry(3, time.Millisecond))
	out, err := cli.Consult(context.Background(), nil, Instructions)
	if err != nil {
		t.Fatalf("Consult error: %v", err)
	}
	if out != `{"action":"Is it alive?"}` {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(fake.Consults) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fake.Consults))
	}
}

func TestTimeoutMapsDeadlineToUnavailable(t *testing.T) {
	slow := &slowClient{delay: 50 * time.Millisecond}
	cli := Wrap(slow, Timeout(time.Millisecond))
	_, err := cli.Consult(context.Background(), nil, Instructions)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

type slowClient struct {
	delay time.Duration
}

func (s *slowClient) Name() string { return "slow" }
func (s *slowClient) Close() error { return nil }
func (s *slowClient) Consult(ctx context.Context, _ game.Transcript, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.delay):
		return "{}", nil
	}
}

func TestBuildMessagesRoleMapping(t *testing.T) {
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it alive?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
	}
	msgs := BuildMessages(tr)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant || msgs[1].Role != RoleUser {
		t.Fatalf("unexpected roles: %+v", msgs)
	}
}

func TestRateLimitAllowsBurst(t *testing.T) {
	fake := NewFakeClient()
	cli := Wrap(fake, RateLimit(100, 2))
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		if _, err := cli.Consult(ctx, nil, Instructions); err != nil {
			t.Fatalf("burst consult %d failed: %v", i, err)
		}
	}
}
