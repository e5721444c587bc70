package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrlokans/querylog/internal/router"
)

// folderGroup is the set of files sharing one output directory.
type folderGroup struct {
	name  string // top-level subfolder, empty for files directly in the root
	files []string
}

// RunFolder ingests every file below root. Files directly in root are routed
// to outRoot; files anywhere under a top-level subfolder S are routed to
// outRoot/S with a router of their own. Hidden files and directories are
// skipped, as is outRoot when it lies inside root. Groups run in name order
// and the first failing group stops the walk.
func (r *Runner) RunFolder(ctx context.Context, root, outRoot string) ([]Outcome, Result, error) {
	total := NewResult()

	groups, err := collectFolder(root, outRoot)
	if err != nil {
		return nil, total, err
	}

	outcomes := make([]Outcome, 0, len(groups))
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return outcomes, total, err
		}

		label := root
		outDir := outRoot
		if group.name != "" {
			label = filepath.Join(root, group.name)
			outDir = filepath.Join(outRoot, group.name)
		}

		var sources []Source
		for _, file := range group.files {
			expanded, err := Expand(file)
			if err != nil {
				return outcomes, total, err
			}
			sources = append(sources, expanded...)
		}

		outcome, err := r.run(ctx, "", label, sources, router.DirectoryTarget(outDir))
		outcomes = append(outcomes, outcome)
		total.Merge(outcome.Result)
		if err != nil {
			return outcomes, total, err
		}
	}
	return outcomes, total, nil
}

// DefaultFolderOutput is where a folder's outputs go when no output
// directory is given: a sibling named "<folder>_<suffix>".
func DefaultFolderOutput(folder, suffix string) string {
	clean := filepath.Clean(folder)
	return clean + "_" + suffix
}

func collectFolder(root, outRoot string) ([]folderGroup, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	root = filepath.Clean(root)
	skip := ""
	if outRoot != "" {
		skip = filepath.Clean(outRoot)
	}

	byGroup := make(map[string][]string)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || path == skip {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		group := ""
		if parts := strings.SplitN(filepath.ToSlash(rel), "/", 2); len(parts) == 2 {
			group = parts[0]
		}
		byGroup[group] = append(byGroup[group], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	groups := make([]folderGroup, 0, len(byGroup))
	for name, files := range byGroup {
		sort.Strings(files)
		groups = append(groups, folderGroup{name: name, files: files})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups, nil
}
