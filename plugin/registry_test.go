package plugin_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/medquote/plugin"
	"github.com/xraph/medquote/quote"
)

type readyCounter struct {
	name  string
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (p *readyCounter) Name() string { return p.name }

func (p *readyCounter) OnQuoteReady(_ context.Context, _ *quote.Request) error {
	p.calls.Add(1)
	time.Sleep(p.delay)
	return p.err
}

func TestRegisterDuplicate(t *testing.T) {
	r := plugin.NewRegistry()
	if err := r.Register(&readyCounter{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&readyCounter{name: "a"}); err == nil {
		t.Fatal("duplicate registration accepted")
	}
	if r.Count() != 1 || r.Get("a") == nil {
		t.Errorf("count=%d", r.Count())
	}
}

func TestEmitSwallowsFailures(t *testing.T) {
	failing := &readyCounter{name: "failing", err: errors.New("boom")}
	slow := &readyCounter{name: "slow", delay: 200 * time.Millisecond}
	ok := &readyCounter{name: "ok"}

	r := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	for _, p := range []plugin.Plugin{failing, slow, ok} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	start := time.Now()
	r.EmitQuoteReady(context.Background(), &quote.Request{})

	if time.Since(start) > 150*time.Millisecond {
		t.Error("slow plugin blocked dispatch past the timeout")
	}
	for _, p := range []*readyCounter{failing, slow, ok} {
		if p.calls.Load() != 1 {
			t.Errorf("%s called %d times", p.name, p.calls.Load())
		}
	}
}

type asyncCounter struct {
	readyCounter
	sawCancel atomic.Bool
}

func (p *asyncCounter) RunAsync() bool { return true }

func (p *asyncCounter) OnQuoteReady(ctx context.Context, r *quote.Request) error {
	time.Sleep(p.delay)
	if ctx.Err() != nil {
		p.sawCancel.Store(true)
	}
	return p.readyCounter.OnQuoteReady(ctx, r)
}

func TestEmitAsyncDoesNotBlock(t *testing.T) {
	slow := &asyncCounter{readyCounter: readyCounter{name: "webhook", delay: 100 * time.Millisecond}}
	r := plugin.NewRegistry()
	if err := r.Register(slow); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	r.EmitQuoteReady(ctx, &quote.Request{})
	cancel()

	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("async hook blocked emit for %v", time.Since(start))
	}

	r.Wait()
	if slow.calls.Load() != 1 {
		t.Fatalf("async hook called %d times, want 1", slow.calls.Load())
	}
	if slow.sawCancel.Load() {
		t.Error("async hook saw the caller's cancellation")
	}
}
