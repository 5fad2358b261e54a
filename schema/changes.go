package schema

import "slices"

// ChangeSet partitions every known path into exactly one bucket. It is never persisted.
type ChangeSet struct {
	Added     []string `json:"added"`
	Modified  []string `json:"modified"`
	Unchanged []string `json:"unchanged"`
	Removed   []string `json:"removed"`
}

// Empty reports whether nothing was added, modified or removed.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// NeedsWork returns the added and modified paths in sorted order.
func (c ChangeSet) NeedsWork() []string {
	paths := make([]string, 0, len(c.Added)+len(c.Modified))
	paths = append(paths, c.Added...)
	paths = append(paths, c.Modified...)
	slices.Sort(paths)
	return paths
}

// KindOf returns the bucket a path belongs to, or false when the path is unknown.
func (c ChangeSet) KindOf(path string) (ChangeKind, bool) {
	switch {
	case slices.Contains(c.Added, path):
		return ChangeAdded, true
	case slices.Contains(c.Modified, path):
		return ChangeModified, true
	case slices.Contains(c.Unchanged, path):
		return ChangeUnchanged, true
	case slices.Contains(c.Removed, path):
		return ChangeRemoved, true
	}
	return "", false
}

// Promote moves unchanged paths into the modified bucket so they are analyzed again.
// Paths that are not unchanged are ignored.
func (c *ChangeSet) Promote(paths []string) {
	if len(paths) == 0 {
		return
	}
	kept := c.Unchanged[:0:0]
	for _, p := range c.Unchanged {
		if slices.Contains(paths, p) {
			c.Modified = append(c.Modified, p)
			continue
		}
		kept = append(kept, p)
	}
	c.Unchanged = kept
	slices.Sort(c.Modified)
}

// Counts returns the size of each bucket.
func (c ChangeSet) Counts() map[ChangeKind]int {
	return map[ChangeKind]int{
		ChangeAdded:     len(c.Added),
		ChangeModified:  len(c.Modified),
		ChangeUnchanged: len(c.Unchanged),
		ChangeRemoved:   len(c.Removed),
	}
}
