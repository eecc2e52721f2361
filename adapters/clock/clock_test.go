package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/artpar/bazaargate/adapters/clock"
)

func TestReal_NowIsUTC(t *testing.T) {
	got := clock.Real{}.Now()
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
	if d := time.Since(got); d < 0 || d > time.Second {
		t.Errorf("Now() drifted by %v", d)
	}
}

func TestFake_SetAndAdvance(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(baseTime)

	if !c.Now().Equal(baseTime) {
		t.Errorf("Now() = %v, want %v", c.Now(), baseTime)
	}

	got := c.Advance(10 * time.Minute)
	want := baseTime.Add(10 * time.Minute)
	if !got.Equal(want) || !c.Now().Equal(want) {
		t.Errorf("after Advance = %v, want %v", c.Now(), want)
	}

	c.Set(baseTime)
	if !c.Now().Equal(baseTime) {
		t.Errorf("after Set = %v, want %v", c.Now(), baseTime)
	}
}

func TestFake_Concurrent(t *testing.T) {
	c := clock.NewFake(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	wg.Wait()

	want := time.Date(2024, 1, 15, 12, 1, 40, 0, time.UTC)
	if !c.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", c.Now(), want)
	}
}
