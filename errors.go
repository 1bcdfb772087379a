package tap

import (
	"github.com/prxssh/tap/api"
	"github.com/zeebo/errs"
)

var classes = []*errs.Class{
	&api.ErrInvalidConfiguration,
	&api.ErrPreexistingOutput,
	&api.ErrIO,
	&api.ErrDecode,
	&api.ErrEncode,
}

// classify returns err unchanged when it already belongs to one of the api
// error classes, and wraps it in fallback otherwise.
func classify(err error, fallback *errs.Class) error {
	if err == nil {
		return nil
	}

	for _, class := range classes {
		if class.Has(err) {
			return err
		}
	}
	return fallback.Wrap(err)
}
