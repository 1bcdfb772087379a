package tap

import (
	"fmt"
	"time"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/flow"
)

func storerOf(proc *flow.Process) (api.Storer, error) {
	if proc == nil {
		return nil, api.ErrInvalidConfiguration.New("tap: process can't be nil")
	}
	if proc.Storer == nil {
		return nil, api.ErrInvalidConfiguration.New("tap: process has no storer")
	}
	return proc.Storer, nil
}

// ResourceExists reports whether anything is stored at the tap's path.
func (t *Tap) ResourceExists(proc *flow.Process) (bool, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return false, err
	}

	return resourceExists(storer, t.path)
}

// DeleteResource removes everything stored at the tap's path. Deleting a
// missing path succeeds.
func (t *Tap) DeleteResource(proc *flow.Process) error {
	storer, err := storerOf(proc)
	if err != nil {
		return err
	}

	if err := storer.Delete(t.path); err != nil {
		return api.ErrIO.Wrap(fmt.Errorf("tap: delete %s: %w", t.path, err))
	}

	proc.Log().Debug("deleted tap resource", "path", t.path)
	return nil
}

// ModifiedTime returns the last modification time of the tap's path. For a
// directory it is the newest of its visible files.
func (t *Tap) ModifiedTime(proc *flow.Process) (time.Time, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return time.Time{}, err
	}

	info, err := storer.Stat(t.path)
	if err != nil {
		return time.Time{}, api.ErrIO.Wrap(fmt.Errorf("tap: stat %s: %w", t.path, err))
	}
	if !info.IsDir {
		return info.ModTime, nil
	}

	files, err := t.sourceFiles(storer)
	if err != nil {
		return time.Time{}, err
	}

	latest := info.ModTime
	for _, f := range files {
		if f.ModTime.After(latest) {
			latest = f.ModTime
		}
	}
	return latest, nil
}

// Size returns the number of bytes a read of the tap covers.
func (t *Tap) Size(proc *flow.Process) (int64, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return 0, err
	}

	files, err := t.sourceFiles(storer)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total, nil
}

// ChildIdentifiers returns the paths of the files a read of the tap covers,
// in read order.
func (t *Tap) ChildIdentifiers(proc *flow.Process) ([]string, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return nil, err
	}

	files, err := t.sourceFiles(storer)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.Path
	}
	return ids, nil
}
