/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 12:41:19 2018 mstenber
 * Last modified: Tue Mar 20 12:47:30 2018 mstenber
 * Edit time:     3 min
 *
 */

package storage

import "errors"

var (
	ErrNotFormatted  = errors.New("image is not formatted")
	ErrReadOnly      = errors.New("read-only medium")
	ErrInvalidRegion = errors.New("region outside block")
	ErrInvalidImage  = errors.New("invalid image")
)
