// Package scheme provides the record layouts taps ship with: Flat, a
// length-framed msgpack layout used as the default whole-record scheme, and
// Delimited, one text line per record.
package scheme

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/props"
	"storj.io/common/memory"
)

const (
	// PropReadBufferSize sizes the buffer schemes read records through.
	PropReadBufferSize = "tap.read.buffer.size"

	// PropSkipHeader makes Delimited drop the first line of every file it
	// reads from the start, even when the scheme itself declares no header.
	PropSkipHeader = "delimited.skip.header"

	defaultReadBufferSize = 64 * memory.KiB
	minReadBufferSize     = 16
)

// Scheme type names used in descriptors.
const (
	TypeFlat      = "flat"
	TypeDelimited = "delimited"
)

func newBufferedReader(r io.Reader, p props.Properties) (*bufio.Reader, error) {
	size, err := p.Size(PropReadBufferSize, defaultReadBufferSize)
	if err != nil {
		return nil, api.ErrInvalidConfiguration.Wrap(err)
	}

	return bufio.NewReaderSize(r, max(size.Int(), minReadBufferSize)), nil
}

// Resolve rebuilds a built-in scheme from its descriptor.
func Resolve(d api.SchemeDescriptor) (api.Scheme, error) {
	switch d.Type {
	case TypeFlat:
		return NewFlat(d.Fields), nil

	case TypeDelimited:
		var opts []DelimitedOption
		if d.Delimiter != "" {
			r, size := utf8.DecodeRuneInString(d.Delimiter)
			if size != len(d.Delimiter) || r == utf8.RuneError {
				return nil, api.ErrInvalidConfiguration.New("delimiter %q is not a single character", d.Delimiter)
			}
			opts = append(opts, WithDelimiter(r))
		}
		if d.Header {
			opts = append(opts, WithHeader())
		}
		return NewDelimited(d.Fields, opts...), nil

	default:
		return nil, api.ErrInvalidConfiguration.Wrap(fmt.Errorf("unknown scheme type %q", d.Type))
	}
}
