// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package devserve

import (
	"os"
	"path/filepath"

	"github.com/xlab/treeprint"
)

// RenderTree renders the directory tree under root down to depth levels,
// with file sizes as node metadata. Unreadable subdirectories are shown
// without children.
func RenderTree(root string, depth int) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	tree := treeprint.NewWithRoot(root)
	addEntries(tree, root, entries, depth)
	return tree.String(), nil
}

func addEntries(branch treeprint.Tree, dir string, entries []os.DirEntry, depth int) {
	if depth <= 0 {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			sub := branch.AddBranch(e.Name() + "/")
			children, err := os.ReadDir(filepath.Join(dir, e.Name()))
			if err != nil {
				sub.SetMetaValue("unreadable")
				continue
			}
			addEntries(sub, filepath.Join(dir, e.Name()), children, depth-1)
			continue
		}
		info, err := e.Info()
		if err != nil {
			branch.AddNode(e.Name())
			continue
		}
		branch.AddMetaNode(info.Size(), e.Name())
	}
}
