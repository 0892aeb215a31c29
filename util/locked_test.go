/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:56:37 2018 mstenber
 * Last modified: Mon Mar 26 10:14:40 2018 mstenber
 * Edit time:     12 min
 *
 */

package util

import (
	"sync"
	"testing"

	"github.com/stvp/assert"
)

func TestMutexLocked(t *testing.T) {
	t.Parallel()
	var l MutexLocked

	var wg sync.WaitGroup
	wg.Add(10)
	j := 0
	for i := 0; i < 10; i++ {
		go func() {
			defer wg.Done()
			defer l.Locked()()
			j++
		}()
	}
	wg.Wait()
	assert.Equal(t, j, 10)
}

func TestRWMutexLocked(t *testing.T) {
	t.Parallel()
	var l RWMutexLocked

	var wg sync.WaitGroup
	j := 0
	sum := 0
	var sumLock MutexLocked
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer l.Locked()()
			j++
		}()
		go func() {
			defer wg.Done()
			defer l.RLocked()()
			v := j
			defer sumLock.Locked()()
			sum += v
		}()
	}
	wg.Wait()
	assert.Equal(t, j, 10)
	assert.True(t, sum >= 0 && sum <= 100)

	// Readers do not exclude each other.
	unlock1 := l.RLocked()
	unlock2 := l.RLocked()
	unlock2()
	unlock1()
}
