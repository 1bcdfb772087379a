package tap

import (
	"context"
	"runtime"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/internal/split"
	"github.com/prxssh/tap/pkg/flow"
	"golang.org/x/sync/errgroup"
	"storj.io/common/memory"
)

// PropReadParallelism bounds how many splits ReadSplits reads at once.
// Defaults to GOMAXPROCS.
const PropReadParallelism = "tap.read.parallelism"

// Split is a byte range of one source file.
type Split = split.Split

// Splits cuts the tap's source files into ranges of at most size bytes so they
// can be read independently. Files are only cut when the scheme is an
// api.SplitScheme; otherwise each file is one split.
func (t *Tap) Splits(proc *flow.Process, size memory.Size) ([]Split, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return nil, err
	}

	files, err := t.sourceFiles(storer)
	if err != nil {
		return nil, err
	}

	_, splittable := t.scheme.(api.SplitScheme)
	return split.Plan(files, size.Int64(), splittable), nil
}

// OpenSplit returns an iterator over the records of a single split.
func (t *Tap) OpenSplit(proc *flow.Process, s Split) (*TupleEntryIterator, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return nil, err
	}

	src := newSourceReader(t.scheme, storer, proc.Properties, []split.Split{s})
	if err := src.prime(); err != nil {
		return nil, err
	}

	proc.Log().Debug("opened tap split", "path", t.path, "split", s.String())
	return newTupleEntryIterator(t, src, proc.Log()), nil
}

// ReadSplits reads every split of the tap concurrently, handing each one's
// iterator to fn. Iterators are closed when fn returns. The first error stops
// splits that have not started yet and is returned.
func (t *Tap) ReadSplits(proc *flow.Process, size memory.Size, fn func(Split, *TupleEntryIterator) error) error {
	splits, err := t.Splits(proc, size)
	if err != nil {
		return err
	}

	parallelism, err := proc.Properties.Int(PropReadParallelism, runtime.GOMAXPROCS(0))
	if err != nil {
		return api.ErrInvalidConfiguration.Wrap(err)
	}
	if parallelism < 1 {
		return api.ErrInvalidConfiguration.New("tap: %s must be greater than 0", PropReadParallelism)
	}

	grp, ctx := errgroup.WithContext(context.Background())
	grp.SetLimit(parallelism)

	for _, s := range splits {
		grp.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			it, err := t.OpenSplit(proc, s)
			if err != nil {
				return err
			}
			defer it.Close()

			return fn(s, it)
		})
	}

	return grp.Wait()
}
