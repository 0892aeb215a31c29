/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 10:33:02 2018 mstenber
 * Last modified: Mon Mar 19 10:35:47 2018 mstenber
 * Edit time:     2 min
 *
 */

package fat

import "errors"

var (
	// ErrDiskFull is returned when no EMPTY entry is left.
	ErrDiskFull = errors.New("disk full")

	// ErrCorrupt is returned when a chain points somewhere it
	// should not, or does not terminate.
	ErrCorrupt = errors.New("corrupt allocation table")

	// ErrInvalidIndex is returned when an operation is given an
	// index that is reserved, out of range or not allocated.
	ErrInvalidIndex = errors.New("invalid block index")
)
