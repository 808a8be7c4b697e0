package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/ssh"
)

// Inspector analyzes a local adapter source tree before it is shipped to a
// device. It catches problems that would otherwise only surface as a remote
// build failure, after the tree has already been transferred.
type Inspector struct {
	root     string
	excludes []string
}

// Info summarizes a source tree.
type Info struct {
	Root        string
	HasMakefile bool
	Files       int
	TotalBytes  int64
}

// New creates an Inspector for the given source root. Entries matching an
// exclude pattern are ignored, mirroring what the sync archive skips.
func New(root string, excludes []string) *Inspector {
	if root == "" {
		root = "."
	}
	return &Inspector{root: root, excludes: excludes}
}

// Inspect walks the tree and returns its summary. It fails if the root does
// not exist, is not a directory, or contains no Makefile at the top level.
func (i *Inspector) Inspect() (*Info, error) {
	stat, err := os.Stat(i.root)
	if err != nil {
		return nil, fmt.Errorf("source directory %q not accessible: %w", i.root, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("source path %q is not a directory", i.root)
	}

	info := &Info{Root: i.root}

	err = filepath.WalkDir(i.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == i.root {
			return nil
		}
		if ssh.Excluded(entry.Name(), i.excludes) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}
		info.Files++
		info.TotalBytes += fi.Size()

		if filepath.Dir(path) == filepath.Clean(i.root) && entry.Name() == "Makefile" {
			info.HasMakefile = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source tree: %w", err)
	}

	if !info.HasMakefile {
		return nil, fmt.Errorf("no Makefile found in %q: the adapter is built on the device with make", i.root)
	}
	if info.Files == 0 {
		return nil, fmt.Errorf("source directory %q is empty", i.root)
	}

	return info, nil
}
