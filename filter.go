package exfetch

import (
	"path/filepath"

	"github.com/alnah/go-exfetch/internal/fileutil"
)

// FilterExisting drops from names every entry whose derived output
// (source extension replaced by ext) already exists as a regular file in
// dir. With force set, names is returned unchanged.
//
// The check is existence only: a file left behind by an interrupted run
// of another tool counts as done. Files written by this package go through
// fileutil.WriteAtomic and are never partial under their final name.
func FilterExisting(names []string, dir, ext string, force bool) ([]string, error) {
	if force {
		return names, nil
	}
	if err := fileutil.ValidateExtension(ext); err != nil {
		return nil, err
	}

	remaining := make([]string, 0, len(names))
	for _, name := range names {
		out, err := DerivedName(name, ext)
		if err != nil {
			return nil, err
		}
		if fileutil.FileExists(filepath.Join(dir, out)) {
			continue
		}
		remaining = append(remaining, name)
	}
	return remaining, nil
}
