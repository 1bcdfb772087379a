package api

import "github.com/zeebo/errs"

// Error classes shared by taps, schemes and storers. Test membership with
// Has, e.g. api.ErrIO.Has(err).
var (
	// ErrInvalidConfiguration marks bad construction arguments. It is always
	// returned at construction, never deferred to open time.
	ErrInvalidConfiguration = errs.Class("invalid configuration")

	// ErrPreexistingOutput marks a write refused by the sink mode.
	ErrPreexistingOutput = errs.Class("preexisting output")

	// ErrIO marks storage access failures and truncated records.
	ErrIO = errs.Class("io failure")

	// ErrDecode marks a record the scheme could not decode.
	ErrDecode = errs.Class("decode failure")

	// ErrEncode marks a tuple the scheme could not encode.
	ErrEncode = errs.Class("encode failure")
)
