//go:build !unix

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 15:52:51 2018 mstenber
 * Last modified: Tue Mar 20 15:53:30 2018 mstenber
 * Edit time:     1 min
 *
 */

package file

import "os"

func lockFile(f *os.File, exclusive bool) error {
	return nil
}
