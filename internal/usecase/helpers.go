package usecase

import (
	"errors"

	"github.com/arklim/commerce-platform-verify/internal/repository"
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
