package archive

import (
	"context"
	"errors"

	"twentyq/internal/game"
)

// Saver is anything that can persist a finished game.
type Saver interface {
	SaveFinished(ctx context.Context, rec game.FinishedGame) error
}

// Multi fans a record out to every backend, attempting all of them even
// when one fails.
type Multi []Saver

func (m Multi) SaveFinished(ctx context.Context, rec game.FinishedGame) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveFinished(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
