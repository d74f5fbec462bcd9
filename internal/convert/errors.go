package convert

import "errors"

// ErrParse is returned when the input document cannot be read or parsed.
var ErrParse = errors.New("html parse failed")
