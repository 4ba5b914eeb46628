package tree

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"surveyor/internal/model"
)

// relPath returns the hint file relative to the first matching input root,
// in slash form. Hints without a file yield "".
func relPath(c *model.Configuration, file string) string {
	if file == "" {
		return ""
	}
	p := path.Clean(filepath.ToSlash(file))
	for _, root := range c.Options.Input {
		r := path.Clean(filepath.ToSlash(root))
		if rest, ok := strings.CutPrefix(p, r+"/"); ok {
			return rest
		}
	}
	return strings.TrimPrefix(p, "/")
}

// groupChildren lists the entries directly inside dir ("" is the top):
// folders first, then files, both sorted. At the top level, hints without
// a location follow the files in model order.
func (t *Tree) groupChildren(c *model.Configuration, dir string) []key {
	folders := map[string]struct{}{}
	files := map[string]struct{}{}
	var loose []key
	for _, h := range c.Hints {
		rel := relPath(c, h.Location.File)
		if rel == "" {
			if dir == "" {
				loose = append(loose, key{kind: KindHint, config: c.ID, hint: h.ID})
			}
			continue
		}
		rest := rel
		if dir != "" {
			var ok bool
			if rest, ok = strings.CutPrefix(rel, dir+"/"); !ok {
				continue
			}
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			folders[path.Join(dir, rest[:i])] = struct{}{}
		} else {
			files[rel] = struct{}{}
		}
	}

	out := make([]key, 0, len(folders)+len(files)+len(loose))
	for _, f := range sortedKeys(folders) {
		out = append(out, key{kind: KindFolder, config: c.ID, ref: f})
	}
	for _, f := range sortedKeys(files) {
		out = append(out, key{kind: KindFile, config: c.ID, ref: f})
	}
	return append(out, loose...)
}

func (t *Tree) fileChildren(c *model.Configuration, rel string) []key {
	var out []key
	for _, h := range c.Hints {
		if relPath(c, h.Location.File) == rel {
			out = append(out, key{kind: KindHint, config: c.ID, hint: h.ID})
		}
	}
	return out
}

// hasQuickfixesUnder reports whether any hint in the folder (or the file,
// when exact) carries quickfixes.
func (t *Tree) hasQuickfixesUnder(c *model.Configuration, ref string, exact bool) bool {
	for _, h := range c.Hints {
		if len(h.Quickfixes) == 0 {
			continue
		}
		rel := relPath(c, h.Location.File)
		if rel == ref || (!exact && strings.HasPrefix(rel, ref+"/")) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
