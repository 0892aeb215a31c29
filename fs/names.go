/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 22 10:20:44 2018 mstenber
 * Last modified: Thu Mar 22 11:03:12 2018 mstenber
 * Edit time:     19 min
 *
 */

package fs

import (
	"fmt"
	"strings"

	"github.com/fingon/go-fatfs/record"
)

// Characters that may not appear in a name (or type). '.' is allowed
// once in a file name, as the separator.
const forbiddenCharacters = "$./\x00"

func validatePart(name, what, part string, max int) error {
	if len(part) > max {
		return fmt.Errorf("%w: %s %q: %s longer than %d", ErrInvalidArgument, what, name, part, max)
	}
	if strings.ContainsAny(part, forbiddenCharacters) {
		return fmt.Errorf("%w: %s %q contains one of %q", ErrInvalidArgument, what, name, forbiddenCharacters)
	}
	return nil
}

func ValidateDirectoryName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty directory name", ErrInvalidArgument)
	}
	return validatePart(name, "directory name", name, record.NameSize)
}

// ValidateFileName accepts name[.type]; neither part may be longer
// than the record allows, and the name may not start or end with '.'.
func ValidateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty file name", ErrInvalidArgument)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: file name %q starts or ends with '.'", ErrInvalidArgument, name)
	}
	n, t := record.SplitFileName(name)
	if err := validatePart(name, "file name", n, record.NameSize); err != nil {
		return err
	}
	return validatePart(name, "file name", t, record.TypeSize)
}

func validateName(name string, directory bool) error {
	if directory {
		return ValidateDirectoryName(name)
	}
	return ValidateFileName(name)
}

// descriptorName splits a validated name into record name and type.
func descriptorName(name string, directory bool) (string, string) {
	if directory {
		return name, ""
	}
	return record.SplitFileName(name)
}
