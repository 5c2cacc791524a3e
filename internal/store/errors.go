package store

import (
	"fmt"

	apperrors "github.com/gfcamara/eventsync/internal/errors"
	"github.com/gfcamara/eventsync/internal/models"
)

func errInvalidKind(kind models.Kind) error {
	return apperrors.New(apperrors.ErrInvalidKind, fmt.Sprintf("unknown entity kind %q", kind))
}

func errItemNotFound(kind models.Kind, localID string) error {
	return apperrors.New(apperrors.ErrItemNotFound,
		fmt.Sprintf("no %s item with local id %q", kind, localID))
}
