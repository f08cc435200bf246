package library

import "sort"

// Node is one directory level of the scanned music library tree. Child
// directories and media files are both keyed by their Simplify'd name so
// that directory-overlay scans merge same-named entries from different
// roots, and lookups are accent/case-insensitive.
type Node struct {
	DisplayName string
	Path        string
	Dirs        map[string]*Node
	Media       map[string]*Track
	// Graphic is the full path of the cover-art file found directly in this
	// directory, empty if this directory has none of its own.
	Graphic string
}

func newNode(displayName, path string) *Node {
	return &Node{
		DisplayName: displayName,
		Path:        path,
		Dirs:        make(map[string]*Node),
		Media:       make(map[string]*Track),
	}
}

// EffectiveGraphic returns n.Graphic if set, otherwise deterministically
// picks one graphic from anywhere in the subtree (sorted by path, so the
// choice is stable across calls) so that a directory with no cover art of
// its own still has something to show. Returns "" if the subtree has no
// graphics at all.
func EffectiveGraphic(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Graphic != "" {
		return n.Graphic
	}

	var candidates []string
	collectGraphics(n, &candidates)
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}

func collectGraphics(n *Node, out *[]string) {
	if n.Graphic != "" {
		*out = append(*out, n.Graphic)
	}
	for _, name := range sortedKeys(n.Dirs) {
		collectGraphics(n.Dirs[name], out)
	}
}

func sortedKeys(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup walks a slice of simplified path segments from the root, returning
// the directory node at that path, or nil if any segment is missing.
func (n *Node) Lookup(segments []string) *Node {
	cur := n
	for _, seg := range segments {
		next, ok := cur.Dirs[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Track looks up a media entry by simplified name directly under this node.
func (n *Node) Track(name string) (*Track, bool) {
	t, ok := n.Media[name]
	return t, ok
}
