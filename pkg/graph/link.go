package graph

import (
	"errors"
	"fmt"
)

// Link is an edge between an output socket of one node and an input socket of
// another. Two links are equal iff all four fields match, which makes Link
// usable as a set key for topology diffing.
type Link struct {
	FromNode   string `json:"from_node" yaml:"from_node"`
	FromSocket string `json:"from_socket" yaml:"from_socket"`
	ToNode     string `json:"to_node" yaml:"to_node"`
	ToSocket   string `json:"to_socket" yaml:"to_socket"`
}

// Validate checks if the link is valid
func (l Link) Validate() error {
	if l.FromNode == "" {
		return errors.New("link: empty from node")
	}
	if l.ToNode == "" {
		return errors.New("link: empty to node")
	}
	if l.FromSocket == "" {
		return errors.New("link: empty from socket")
	}
	if l.ToSocket == "" {
		return errors.New("link: empty to socket")
	}
	if l.FromNode == l.ToNode {
		return fmt.Errorf("link: self-loop detected (node %s to itself)", l.FromNode)
	}
	return nil
}

// String returns a compact human-readable form of the link.
func (l Link) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", l.FromNode, l.FromSocket, l.ToNode, l.ToSocket)
}

// LinkSet is a set of links supporting the set-difference operation used to
// compute topology deltas between two snapshots of the same graph.
type LinkSet map[Link]struct{}

// NewLinkSet builds a set from a slice of links.
func NewLinkSet(links []Link) LinkSet {
	s := make(LinkSet, len(links))
	for _, l := range links {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts a link into the set.
func (s LinkSet) Add(l Link) {
	s[l] = struct{}{}
}

// Contains reports whether the exact link is present.
func (s LinkSet) Contains(l Link) bool {
	_, ok := s[l]
	return ok
}

// Difference returns the links present in s but not in other.
func (s LinkSet) Difference(other LinkSet) []Link {
	var diff []Link
	for l := range s {
		if !other.Contains(l) {
			diff = append(diff, l)
		}
	}
	return diff
}

// HasFrom reports whether any link in the set originates from the given
// output socket of the given node.
func (s LinkSet) HasFrom(node, socket string) bool {
	for l := range s {
		if l.FromNode == node && l.FromSocket == socket {
			return true
		}
	}
	return false
}
