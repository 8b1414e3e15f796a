package corpus

import "errors"

var (
	// ErrMalformed is returned when the source is not valid JSON or its
	// layout does not match AllPrintings.
	ErrMalformed = errors.New("malformed card source")
	// ErrMissingData is returned when the top-level "data" object is absent.
	ErrMissingData = errors.New("card source has no data object")
	// ErrEmptyCorpus is returned when the source holds no usable cards.
	ErrEmptyCorpus = errors.New("card source contains no cards")
)
