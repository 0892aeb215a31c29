/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:21:40 2018 mstenber
 * Last modified: Mon Mar 26 10:12:03 2018 mstenber
 * Edit time:     31 min
 *
 */

package util

import "sync"

// MutexLocked is a mutex with convenience features (just defer
// x.Locked()()).
type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}

// RWMutexLocked is the read-write variant; writers defer
// x.Locked()(), readers defer x.RLocked()().
type RWMutexLocked sync.RWMutex

func (self *RWMutexLocked) Locked() (unlock func()) {
	mut := (*sync.RWMutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}

func (self *RWMutexLocked) RLocked() (unlock func()) {
	mut := (*sync.RWMutex)(self)
	mut.RLock()
	return func() {
		mut.RUnlock()
	}
}
