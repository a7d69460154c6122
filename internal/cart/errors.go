package cart

import "errors"

// ErrInvalidDelta is returned for quantity steps other than +1 and -1.
var ErrInvalidDelta = errors.New("quantity can only change by one")
