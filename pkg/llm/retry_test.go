package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyProvider fails a fixed number of times before succeeding.
type flakyProvider struct {
	failures int
	calls    int
}

func (p *flakyProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	p.calls++
	if p.calls <= p.failures {
		return "", errors.New("connection refused")
	}
	return "recovered answer", nil
}

func (p *flakyProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}}, options...)
}

func TestRetryingProviderRecovers(t *testing.T) {
	inner := &flakyProvider{failures: 2}
	r := NewRetryingProvider(inner, 3, time.Millisecond)

	reply, err := r.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "recovered answer" {
		t.Errorf("reply = %q", reply)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingProviderExhausts(t *testing.T) {
	inner := &flakyProvider{failures: 100}
	r := NewRetryingProvider(inner, 3, time.Millisecond)

	_, err := r.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want exactly 3", inner.calls)
	}
}

func TestRetryingProviderHonorsContext(t *testing.T) {
	inner := &flakyProvider{failures: 100}
	r := NewRetryingProvider(inner, 5, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Chat(ctx, []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("retry loop ignored cancellation, took %v", elapsed)
	}
}

func TestRetryingProviderGenerate(t *testing.T) {
	inner := &flakyProvider{failures: 0}
	r := NewRetryingProvider(inner, 3, time.Millisecond)

	reply, err := r.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "recovered answer" {
		t.Errorf("reply = %q", reply)
	}
}
