/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 22 10:02:18 2018 mstenber
 * Last modified: Sat Mar 24 13:15:30 2018 mstenber
 * Edit time:     22 min
 *
 */

package fs

import (
	"errors"
	"fmt"

	"github.com/fingon/go-fatfs/directory"
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/record"
)

// Every error returned by FileManager operations that is not an I/O
// or corruption problem matches (errors.Is) exactly one of these.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate name")
	ErrIllegalOperation = errors.New("illegal operation")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrCapacity         = errors.New("out of capacity")

	ErrDirectoryNotEmpty = fmt.Errorf("%w: directory not empty", ErrIllegalOperation)
)

func classified(err error) bool {
	for _, e := range []error{ErrNotFound, ErrDuplicate, ErrIllegalOperation,
		ErrInvalidArgument, ErrCapacity} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// translate maps errors of the lower layers to the taxonomy above,
// keeping the original error in the chain.
func translate(err error) error {
	if err == nil || classified(err) {
		return err
	}
	switch {
	case errors.Is(err, fat.ErrDiskFull), errors.Is(err, directory.ErrDirectoryFull):
		return fmt.Errorf("%w: %w", ErrCapacity, err)
	case errors.Is(err, directory.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, directory.ErrNotDirectory), errors.Is(err, record.ErrInvalidRecord):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}
