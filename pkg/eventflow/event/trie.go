package event

// trieNode indexes subscriptions by path segment. A subscription registered
// at "a.*.c" lives at root -> "a" -> "*" -> "c".
type trieNode struct {
	children map[string]*trieNode
	subs     []*Subscription
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

func (n *trieNode) insert(segments []string, sub *Subscription) {
	cur := n
	for _, s := range segments {
		next, ok := cur.children[s]
		if !ok {
			next = newTrieNode()
			cur.children[s] = next
		}
		cur = next
	}
	cur.subs = append(cur.subs, sub)
}

// remove detaches sub and prunes nodes left empty. It reports whether sub was found.
func (n *trieNode) remove(segments []string, sub *Subscription) bool {
	if len(segments) == 0 {
		for i, s := range n.subs {
			if s == sub {
				n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
				return true
			}
		}
		return false
	}

	child, ok := n.children[segments[0]]
	if !ok {
		return false
	}
	found := child.remove(segments[1:], sub)
	if found && child.empty() {
		delete(n.children, segments[0])
	}
	return found
}

func (n *trieNode) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0
}

// collect appends every subscription whose path matches the concrete
// segments. At each depth it follows the exact child and the wildcard child,
// so the walk is bounded by depth times the wildcard fan-out rather than by
// the number of subscriptions.
func (n *trieNode) collect(segments []string, out []*Subscription) []*Subscription {
	if len(segments) == 0 {
		return append(out, n.subs...)
	}
	head, rest := segments[0], segments[1:]
	if child, ok := n.children[head]; ok {
		out = child.collect(rest, out)
	}
	if head != Wildcard {
		if child, ok := n.children[Wildcard]; ok {
			out = child.collect(rest, out)
		}
	}
	return out
}

func (n *trieNode) each(fn func(*Subscription)) {
	for _, s := range n.subs {
		fn(s)
	}
	for _, child := range n.children {
		child.each(fn)
	}
}
