package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestFromPair(t *testing.T) {
	r := FromPair(strconv.Atoi("42"))
	if v, _ := r.Unwrap(); v != 42 {
		t.Fatal("FromPair failed")
	}
	e := FromPair(strconv.Atoi("nope"))
	if e.IsOk() {
		t.Fatal("FromPair should fail")
	}
}

func TestCollect(t *testing.T) {
	all := Collect([]Result[int]{Ok(1), Ok(2), Ok(3)})
	v, err := all.Unwrap()
	if err != nil || len(v) != 3 || v[0] != 1 {
		t.Fatal("Collect failed")
	}

	bad := Collect([]Result[int]{Ok(1), Err[int](errors.New("e1")), Err[int](errors.New("e2"))})
	_, err = bad.Unwrap()
	if err == nil || err.Error() != "e1" {
		t.Fatal("Collect should return first error")
	}

	empty := Collect([]Result[int]{})
	if !empty.IsOk() {
		t.Fatal("Collect empty should be ok")
	}
}

// --- Slice ---

func TestMap(t *testing.T) {
	out := Map([]int{1, 2, 3}, func(v int) int { return v * 2 })
	if len(out) != 3 || out[2] != 6 {
		t.Fatal("Map failed")
	}
	empty := Map([]int{}, func(v int) int { return v })
	if len(empty) != 0 {
		t.Fatal("Map empty failed")
	}
}

func TestFilter(t *testing.T) {
	out := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	if len(out) != 2 || out[0] != 2 {
		t.Fatal("Filter failed")
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	out := Filter([]int{5, 1, 4, 2, 3}, func(v int) bool { return v > 1 })
	want := []int{5, 4, 2, 3}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("order broken at %d: got %v", i, out)
		}
	}
}

func TestChunk(t *testing.T) {
	c := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(c) != 3 || len(c[2]) != 1 {
		t.Fatal("Chunk failed")
	}
	if got := Chunk([]int{1, 2, 3, 4}, 4); len(got) != 1 || len(got[0]) != 4 {
		t.Fatal("Chunk exact multiple should yield one full chunk")
	}
	if got := Chunk([]int{1, 2, 3, 4, 5}, 4); len(got) != 2 || len(got[1]) != 1 {
		t.Fatal("Chunk one over should yield a trailing chunk of one")
	}
	if Chunk([]int{1}, 0) != nil {
		t.Fatal("Chunk n<=0 should return nil")
	}
	if Chunk([]int{1}, -1) != nil {
		t.Fatal("Chunk negative should return nil")
	}
}

// --- Parallel ---

func TestParMapResult(t *testing.T) {
	out := ParMapResult([]int{1, 2, 3, 4}, 2, func(v int) Result[int] { return Ok(v * 2) })
	for i, r := range out {
		v, err := r.Unwrap()
		if err != nil || v != (i+1)*2 {
			t.Fatalf("ParMapResult order broken at %d", i)
		}
	}
}

func TestParMapResultEmpty(t *testing.T) {
	out := ParMapResult([]int{}, 2, func(v int) Result[int] { return Ok(v) })
	if len(out) != 0 {
		t.Fatal("ParMapResult empty should return empty")
	}
}

func TestParMapResultUnbounded(t *testing.T) {
	out := ParMapResult([]int{1, 2, 3}, 0, func(v int) Result[int] { return Ok(v + 1) })
	if v, _ := out[0].Unwrap(); v != 2 {
		t.Fatal("ParMapResult unbounded failed")
	}
}

func TestParMapResultCarriesErrors(t *testing.T) {
	out := ParMapResult([]int{1, 2, 3}, 2, func(v int) Result[int] {
		if v == 2 {
			return Err[int](errors.New("fail"))
		}
		return Ok(v)
	})
	if !out[0].IsOk() || !out[1].IsErr() || !out[2].IsOk() {
		t.Fatal("errors must stay at their input position")
	}
}

// --- Retry ---

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, Jitter: false}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("not yet"))
		}
		return Ok(42)
	})
	if v, _ := r.Unwrap(); v != 42 || attempts != 3 {
		t.Fatal("Retry should succeed on 3rd attempt")
	}
}

func TestRetryExhausted(t *testing.T) {
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, Jitter: false}, func(_ context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	if r.IsOk() {
		t.Fatal("Retry should fail after exhausting attempts")
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	r := Retry(ctx, RetryOpts{MaxAttempts: 100, InitialWait: 10 * time.Millisecond, Jitter: false}, func(ctx context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	_, err := r.Unwrap()
	if err == nil {
		t.Fatal("Retry should fail on context cancel")
	}
}
