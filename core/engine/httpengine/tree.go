package httpengine

// Radix tree based on the routing tree of the application router, reduced to
// method lookup: parameter values are extracted later by the route binding.

import (
	"cmp"
	"slices"
	"strings"
)

type nodeTyp uint8

const (
	ntStatic   nodeTyp = iota // /home
	ntParam                   // /{user}
	ntCatchAll                // /files/*
)

type node struct {
	// endpoints on the leaf node, keyed by HTTP method
	endpoints map[string]*route

	// prefix is the common prefix matched by a static node
	prefix string

	// children grouped by node type, in lookup order
	children [ntCatchAll + 1]nodes

	// tail is the byte terminating a param segment
	tail byte

	typ nodeTyp

	// label is the first byte of the prefix
	label byte
}

// segment describes the next wildcard in a pattern.
type segment struct {
	typ   nodeTyp
	key   string
	tail  byte
	start int
	end   int
}

func nextSegment(pattern string) (segment, error) {
	ps := strings.IndexByte(pattern, '{')
	ws := strings.IndexByte(pattern, '*')

	if ps < 0 && ws < 0 {
		return segment{typ: ntStatic, end: len(pattern)}, nil
	}
	if ps >= 0 && ws >= 0 && ws < ps {
		return segment{}, ErrWildcardPosition
	}

	if ps >= 0 {
		pe := strings.IndexByte(pattern[ps:], '}')
		if pe < 0 {
			return segment{}, ErrParamDelimiter
		}
		pe += ps
		seg := segment{typ: ntParam, key: pattern[ps+1 : pe], tail: '/', start: ps, end: pe + 1}
		if seg.end < len(pattern) {
			seg.tail = pattern[seg.end]
		}
		return seg, nil
	}

	if ws < len(pattern)-1 {
		return segment{}, ErrWildcardPosition
	}
	return segment{typ: ntCatchAll, key: "*", start: ws, end: len(pattern)}, nil
}

func (n *node) insert(method, pattern string, r *route) error {
	var parent *node
	search := pattern

	for {
		if search == "" {
			return n.setEndpoint(method, r)
		}

		label := search[0]
		var seg segment
		if label == '{' || label == '*' {
			var err error
			if seg, err = nextSegment(search); err != nil {
				return err
			}
		}

		parent = n
		n = n.edge(seg.typ, label, seg.tail)

		if n == nil {
			leaf, err := parent.addChild(&node{label: label, tail: seg.tail, prefix: search}, search)
			if err != nil {
				return err
			}
			return leaf.setEndpoint(method, r)
		}

		if n.typ > ntStatic {
			search = search[seg.end:]
			continue
		}

		common := longestPrefix(search, n.prefix)
		if common == len(n.prefix) {
			search = search[common:]
			continue
		}

		// Split the static node at the shared prefix.
		split := &node{typ: ntStatic, prefix: search[:common]}
		parent.replaceChild(search[0], seg.tail, split)

		n.label = n.prefix[common]
		n.prefix = n.prefix[common:]
		if _, err := split.addChild(n, n.prefix); err != nil {
			return err
		}

		search = search[common:]
		if search == "" {
			return split.setEndpoint(method, r)
		}

		leaf, err := split.addChild(&node{typ: ntStatic, label: search[0], prefix: search}, search)
		if err != nil {
			return err
		}
		return leaf.setEndpoint(method, r)
	}
}

// addChild appends child under n keyed by prefix and returns the leaf that should
// receive the endpoint.
func (n *node) addChild(child *node, prefix string) (*node, error) {
	search := prefix
	leaf := child

	seg, err := nextSegment(search)
	if err != nil {
		return nil, err
	}

	switch {
	case seg.typ == ntStatic:
	case seg.start == 0:
		child.typ = seg.typ
		child.tail = seg.tail

		end := seg.end
		if seg.typ == ntCatchAll {
			end = len(search)
		}
		if end != len(search) {
			// Adjacent params are impossible, so a static node follows.
			search = search[end:]
			leaf, err = child.addChild(&node{typ: ntStatic, label: search[0], prefix: search}, search)
			if err != nil {
				return nil, err
			}
		}
	default:
		child.typ = ntStatic
		child.prefix = search[:seg.start]

		search = search[seg.start:]
		leaf, err = child.addChild(&node{typ: seg.typ, label: search[0], tail: seg.tail}, search)
		if err != nil {
			return nil, err
		}
	}

	n.children[child.typ] = append(n.children[child.typ], child)
	n.children[child.typ].sort()
	return leaf, nil
}

func (n *node) replaceChild(label, tail byte, child *node) {
	for i, c := range n.children[child.typ] {
		if c.label == label && c.tail == tail {
			child.label = label
			child.tail = tail
			n.children[child.typ][i] = child
			return
		}
	}
}

func (n *node) edge(typ nodeTyp, label, tail byte) *node {
	for _, c := range n.children[typ] {
		if c.label == label && c.tail == tail {
			return c
		}
	}
	return nil
}

func (n *node) setEndpoint(method string, r *route) error {
	if n.endpoints == nil {
		n.endpoints = make(map[string]*route)
	}
	if existing, ok := n.endpoints[method]; ok {
		return duplicateRoute(method, existing.pattern)
	}
	n.endpoints[method] = r
	return nil
}

func (n *node) isLeaf() bool { return n.endpoints != nil }

// allowed returns the methods registered on a leaf, sorted.
func (n *node) allowed() []string {
	methods := make([]string, 0, len(n.endpoints))
	for m := range n.endpoints {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

// find returns the leaf matching path. The leaf may lack an endpoint for the
// method, which callers report as 405.
func (n *node) find(method, path string) *node {
	search := path

	for t, nds := range n.children {
		if len(nds) == 0 {
			continue
		}

		var xn *node
		xsearch := search

		switch nodeTyp(t) {
		case ntStatic:
			var label byte
			if search != "" {
				label = search[0]
			}
			xn = nds.findEdge(label)
			if xn == nil || !strings.HasPrefix(xsearch, xn.prefix) {
				continue
			}
			xsearch = xsearch[len(xn.prefix):]

		case ntParam:
			if xsearch == "" {
				continue
			}
			for _, pn := range nds {
				p := strings.IndexByte(xsearch, pn.tail)
				if p < 0 {
					if pn.tail != '/' {
						continue
					}
					p = len(xsearch)
				}
				// params never span segments and are never empty
				if p == 0 || strings.IndexByte(xsearch[:p], '/') >= 0 {
					continue
				}
				rest := xsearch[p:]
				if rest == "" && pn.isLeaf() && pn.endpoints[method] != nil {
					return pn
				}
				if fin := pn.find(method, rest); fin != nil {
					return fin
				}
				if rest == "" && pn.isLeaf() {
					return pn
				}
			}
			continue

		default:
			xn = nds[0]
			xsearch = ""
		}

		if xsearch == "" && xn.isLeaf() {
			return xn
		}
		if fin := xn.find(method, xsearch); fin != nil {
			return fin
		}
	}

	return nil
}

func longestPrefix(a, b string) int {
	limit := min(len(a), len(b))
	i := 0
	for i < limit && a[i] == b[i] {
		i++
	}
	return i
}

type nodes []*node

// sort orders nodes by label, then moves a param node ending in '/' last so that
// params with a more specific tail are tried first.
func (ns nodes) sort() {
	slices.SortFunc(ns, func(a, b *node) int { return cmp.Compare(a.label, b.label) })
	for i := len(ns) - 1; i >= 0; i-- {
		if ns[i].typ > ntStatic && ns[i].tail == '/' {
			ns[i], ns[len(ns)-1] = ns[len(ns)-1], ns[i]
			return
		}
	}
}

func (ns nodes) findEdge(label byte) *node {
	i, ok := slices.BinarySearchFunc(ns, label, func(n *node, l byte) int {
		return cmp.Compare(n.label, l)
	})
	if !ok {
		return nil
	}
	return ns[i]
}
