package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced row does not exist, e.g. a
	// navigation path pointing at a deleted entity.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicateEnrollment is returned when a (user, academic year) pair
	// already has an enrollment.
	ErrDuplicateEnrollment = errors.New("repository: user already enrolled for this academic year")
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
