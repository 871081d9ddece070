package quizxml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// node is a generic XML element. Moodle exports carry many optional children we never
// read, so the document is decoded into a tree and queried through the accessors below.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	CharData string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

func (n node) name() string {
	return n.XMLName.Local
}

func (n node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// all returns every direct child with the given name (zero or more).
func (n node) all(name string) []node {
	var out []node
	for _, child := range n.Children {
		if child.name() == name {
			out = append(out, child)
		}
	}
	return out
}

// one returns the single direct child with the given name and fails on zero or many.
func (n node) one(name string) (node, error) {
	matches := n.all(name)
	if len(matches) != 1 {
		return node{}, fmt.Errorf("expected exactly one <%s> in <%s>, found %d", name, n.name(), len(matches))
	}
	return matches[0], nil
}

// optional returns the child when present at most once.
func (n node) optional(name string) (node, bool, error) {
	matches := n.all(name)
	switch len(matches) {
	case 0:
		return node{}, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return node{}, false, fmt.Errorf("expected at most one <%s> in <%s>, found %d", name, n.name(), len(matches))
	}
}

// text descends through single children along path and returns the trimmed character data.
func (n node) text(path ...string) (string, error) {
	raw, err := n.raw(path...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// raw is text without trimming. HTML fragments go through it untouched.
func (n node) raw(path ...string) (string, error) {
	current := n
	for _, name := range path {
		next, err := current.one(name)
		if err != nil {
			return "", err
		}
		current = next
	}
	return current.CharData, nil
}
