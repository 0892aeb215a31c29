//go:build unix

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 15:40:06 2018 mstenber
 * Last modified: Tue Mar 20 15:52:40 2018 mstenber
 * Edit time:     6 min
 *
 */

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes a non-blocking flock on f; exclusive for writers,
// shared for readers.
func lockFile(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	return unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
}
