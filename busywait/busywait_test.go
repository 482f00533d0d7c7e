// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package busywait

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSleep(t *testing.T) {
	start := time.Now()
	Sleep(time.Millisecond).Delay(5)
	if d := time.Since(start); d < 5*time.Millisecond {
		t.Fatalf("slept only %s", d)
	}
	start = time.Now()
	Sleep(time.Hour).Delay(0)
	if d := time.Since(start); d > time.Second {
		t.Fatalf("Delay(0) blocked for %s", d)
	}
}

func TestSpin(t *testing.T) {
	atomic.StoreUint32(&sink, 0)
	Spin(10).Delay(3)
	if atomic.LoadUint32(&sink) == 0 {
		t.Fatal("no work done")
	}
	Spin(10).Delay(-1)
}

func TestSpin_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Spin(1000).Delay(3)
		}()
	}
	wg.Wait()
}

func TestFunc(t *testing.T) {
	var got []int
	var d Delayer = Func(func(n int) { got = append(got, n) })
	d.Delay(3)
	d.Delay(1)
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Fatalf("got %v", got)
	}
	None.Delay(1000)
}
