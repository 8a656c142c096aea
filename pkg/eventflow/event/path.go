package event

import (
	"slices"
	"strings"
)

// DefaultDelimiter joins path segments on the wire.
const DefaultDelimiter = "."

// Wildcard matches exactly one arbitrary segment when used in a subscription.
const Wildcard = "*"

// Path is an ordered sequence of segments naming a point in the event
// namespace, e.g. "docs.summarize.pending".
//
// Two paths are equal when their collapsed strings are equal. The zero value
// is an empty path using DefaultDelimiter.
//
// Read-only methods use value receivers; Push, PushWildcard, Pop, Clear and
// Concat mutate the receiver. A copied Path never shares a writable tail with
// the original, so mutating one copy leaves the other untouched.
type Path struct {
	segments []string
	delim    string
}

// NewPath builds a path from segments using DefaultDelimiter.
func NewPath(segments ...string) (Path, error) {
	return NewPathWith(DefaultDelimiter, segments...)
}

// NewPathWith builds a path from segments using delim.
func NewPathWith(delim string, segments ...string) (Path, error) {
	p := Path{delim: delim}
	for _, s := range segments {
		if err := p.Push(s); err != nil {
			return Path{}, err
		}
	}
	return p, nil
}

// ParsePath splits s on DefaultDelimiter. The empty string is the empty path.
func ParsePath(s string) (Path, error) {
	return ParsePathWith(s, DefaultDelimiter)
}

// ParsePathWith splits s on delim. The empty string is the empty path.
func ParsePathWith(s, delim string) (Path, error) {
	if s == "" {
		return Path{delim: delim}, nil
	}
	return NewPathWith(delim, strings.Split(s, delim)...)
}

// MustParsePath is ParsePath for constants and tests. It panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Delimiter returns the separator used by Collapse.
func (p Path) Delimiter() string {
	if p.delim == "" {
		return DefaultDelimiter
	}
	return p.delim
}

// Segments returns a copy of the segment list.
func (p Path) Segments() []string {
	return slices.Clone(p.segments)
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// Collapse joins the segments with the delimiter.
func (p Path) Collapse() string {
	return strings.Join(p.segments, p.Delimiter())
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return p.Collapse()
}

// Equal reports whether both paths collapse to the same string.
func (p Path) Equal(other Path) bool {
	return p.Collapse() == other.Collapse()
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	return Path{segments: slices.Clone(p.segments), delim: p.delim}
}

// Derive returns a new path made of p followed by the segments of each other.
// p is not modified.
func (p Path) Derive(others ...Path) Path {
	out := p.Clone()
	for _, o := range others {
		out.Concat(o)
	}
	return out
}

// HasWildcard reports whether any segment is Wildcard.
func (p Path) HasWildcard() bool {
	return slices.Contains(p.segments, Wildcard)
}

// Matches reports whether the concrete path c is selected by p, treating
// Wildcard segments in p as matching any single segment.
func (p Path) Matches(c Path) bool {
	if len(p.segments) != len(c.segments) {
		return false
	}
	for i, s := range p.segments {
		if s != Wildcard && s != c.segments[i] {
			return false
		}
	}
	return true
}

// Push appends a segment. Empty segments and segments containing the
// delimiter are rejected with a *SegmentError and the path is left unchanged.
func (p *Path) Push(segment string) error {
	if segment == "" {
		return &SegmentError{Segment: segment, Reason: "empty segment"}
	}
	if strings.Contains(segment, p.Delimiter()) {
		return &SegmentError{Segment: segment, Reason: "segment contains delimiter " + p.Delimiter()}
	}
	n := len(p.segments)
	p.segments = append(p.segments[:n:n], segment)
	return nil
}

// PushWildcard appends a Wildcard segment.
func (p *Path) PushWildcard() {
	n := len(p.segments)
	p.segments = append(p.segments[:n:n], Wildcard)
}

// Pop removes and returns the last segment. It returns false on an empty path.
func (p *Path) Pop() (string, bool) {
	n := len(p.segments)
	if n == 0 {
		return "", false
	}
	last := p.segments[n-1]
	p.segments = p.segments[: n-1 : n-1]
	return last, true
}

// Clear removes every segment.
func (p *Path) Clear() {
	p.segments = nil
}

// Concat appends the segments of other to p.
// Segments were validated when other was built, so Concat cannot fail; when
// other uses a different delimiter, segments containing p's delimiter are
// split so no segment contains the delimiter.
func (p *Path) Concat(other Path) {
	n := len(p.segments)
	next := p.segments[:n:n]
	for _, s := range other.segments {
		if other.Delimiter() == p.Delimiter() {
			next = append(next, s)
			continue
		}
		for _, part := range strings.Split(s, p.Delimiter()) {
			if part != "" {
				next = append(next, part)
			}
		}
	}
	p.segments = next
}

// MarshalText encodes the collapsed path, so paths round-trip through JSON
// and YAML documents.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.Collapse()), nil
}

// UnmarshalText parses text with the receiver's delimiter.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := ParsePathWith(string(text), p.Delimiter())
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
