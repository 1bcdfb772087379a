package split

import (
	"fmt"

	"github.com/prxssh/tap/api"
)

// Split is a byte range of one source file, read by a single iterator.
type Split struct {
	// ID numbers splits in read order, starting at 1.
	ID int64

	// Path is the file the split belongs to.
	Path string

	// Offset is the byte offset where the split begins.
	Offset int64

	// Len is the length of the split in bytes, or -1 for the whole file.
	Len int64
}

func (s Split) String() string {
	if s.Len < 0 {
		return fmt.Sprintf("%s[%d:]", s.Path, s.Offset)
	}
	return fmt.Sprintf("%s[%d:%d]", s.Path, s.Offset, s.Offset+s.Len)
}

// Plan cuts each file into ranges of at most size bytes. Files that cannot be
// split, and every file when size is not positive, become a single whole-file
// split. Empty files produce no split when splittable.
func Plan(files []api.FileInfo, size int64, splittable bool) []Split {
	globalID := int64(1)
	var splits []Split

	for _, file := range files {
		if !splittable || size <= 0 {
			splits = append(splits, Split{ID: globalID, Path: file.Path, Len: -1})
			globalID++
			continue
		}

		numChunks := (file.Size + size - 1) / size
		for i := int64(0); i < numChunks; i++ {
			offset := i * size
			length := min(size, file.Size-offset)

			splits = append(splits, Split{
				ID:     globalID,
				Path:   file.Path,
				Offset: offset,
				Len:    length,
			})
			globalID++
		}
	}

	return splits
}
