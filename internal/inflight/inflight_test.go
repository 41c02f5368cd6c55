package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestMemory_RejectsSecondHolder(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()
	release, err := g.Acquire(ctx, "https://a.example/")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, "https://a.example/"); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	other, err := g.Acquire(ctx, "https://b.example/")
	if err != nil {
		t.Fatalf("other key should be free: %v", err)
	}
	other()
	release()
	release()
	again, err := g.Acquire(ctx, "https://a.example/")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestMemory_ConcurrentAcquireSingleWinner(t *testing.T) {
	g := NewMemory()
	var wins int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	releases := make(chan func(), 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if rel, err := g.Acquire(context.Background(), "k"); err == nil {
				atomic.AddInt32(&wins, 1)
				releases <- rel
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)
	if wins != 1 {
		t.Fatalf("want exactly one winner, got %d", wins)
	}
	for rel := range releases {
		rel()
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().Acquire(ctx, "k"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestRedis_AcquireAndRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	g := &Redis{Client: db, Prefix: "p:", TTL: time.Minute, NewToken: func() string { return "tok" }}

	mock.ExpectSetNX("p:k", "tok", time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"p:k"}, "tok").SetVal(int64(1))

	release, err := g.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedis_Busy(t *testing.T) {
	db, mock := redismock.NewClientMock()
	g := &Redis{Client: db, Prefix: "p:", TTL: time.Minute, NewToken: func() string { return "tok" }}

	mock.ExpectSetNX("p:k", "tok", time.Minute).SetVal(false)
	if _, err := g.Acquire(context.Background(), "k"); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedis_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	g := &Redis{Client: db, Prefix: "p:", TTL: time.Minute, NewToken: func() string { return "tok" }}

	mock.ExpectSetNX("p:k", "tok", time.Minute).SetErr(errors.New("connection refused"))
	_, err := g.Acquire(context.Background(), "k")
	if err == nil || errors.Is(err, ErrBusy) {
		t.Fatalf("want redis error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestLeaseTTL_CoversScanBudget(t *testing.T) {
	if got := LeaseTTL(10 * time.Second); got != DefaultTTL {
		t.Fatalf("short budget: got %v, want %v", got, DefaultTTL)
	}
	budget := 5 * time.Minute
	if got := LeaseTTL(budget); got <= budget {
		t.Fatalf("lease %v must outlive budget %v", got, budget)
	}
}
