package artwork

import "errors"

var (
	// ErrNotFound indicates Scryfall has no card with the requested name.
	ErrNotFound = errors.New("card not found on scryfall")

	// ErrNoImage indicates the card exists but carries no image.
	ErrNoImage = errors.New("card has no image")

	// ErrUnavailable indicates the upstream failed or the breaker is open.
	ErrUnavailable = errors.New("artwork service unavailable")
)
