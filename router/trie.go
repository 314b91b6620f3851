// Package router implements the segment-keyed trie described for
// request routing: static, parameter (:name), regex ({name:re}), and
// wildcard (*) segments, matched in that priority order with
// backtracking, plus descending-prefix-length static mount points.
// Grounded on caddyserver/caddy's httpserver.vhostTrie (char-edge trie
// with longest-match lookup), generalized from single-character edges
// keyed by hostname to path-segment edges keyed by route syntax.
package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Router holds the registration trie and the static mount-point list.
type Router struct {
	root     *Node
	notFound Handler
	mounts   []*Mount
}

func New() *Router {
	return &Router{root: newNode()}
}

// SetNotFound installs the handler run when no trie node and no mount
// point matches the request at all.
func (r *Router) SetNotFound(h Handler) {
	r.notFound = h
}

// segmentKind classifies one path segment per the registration syntax.
type segmentKind int

const (
	segStatic segmentKind = iota
	segParam
	segRegex
	segWildcard
)

func classify(seg string) (kind segmentKind, name string, pattern string) {
	switch {
	case seg == "*":
		return segWildcard, "*", ""
	case strings.HasPrefix(seg, ":") && len(seg) > 1:
		return segParam, seg[1:], ""
	case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2:
		inner := seg[1 : len(seg)-1]
		idx := strings.IndexByte(inner, ':')
		if idx < 0 {
			return segStatic, "", "" // malformed brace segment, treat literally
		}
		return segRegex, inner[:idx], inner[idx+1:]
	default:
		return segStatic, "", ""
	}
}

// splitPath splits a registered or request path into segments. A
// trailing "/" pushes a final empty-string segment so that routes with
// and without a trailing slash are distinguished.
func splitPath(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return []string{""}
	}
	return strings.Split(trimmed, "/")
}

// On registers h for method on path. Registering the same method twice
// on the same terminal node is an error.
func (r *Router) On(method, path string, h Handler) error {
	node, err := r.insert(path)
	if err != nil {
		return err
	}
	if node.handlers == nil {
		node.handlers = make(map[string]Handler)
	}
	if _, exists := node.handlers[method]; exists {
		return fmt.Errorf("router: %s %s already registered", method, path)
	}
	node.handlers[method] = h
	return nil
}

// OnAny registers h for every method in methods on path, sharing the
// same insertion path as On.
func (r *Router) OnAny(methods []string, path string, h Handler) error {
	for _, m := range methods {
		if err := r.On(m, path, h); err != nil {
			return err
		}
	}
	return nil
}

// OnWebSocket registers a WebSocket handler triple on path, reusing
// the same trie as On/OnAny.
func (r *Router) OnWebSocket(path string, ws WSHandlers) error {
	node, err := r.insert(path)
	if err != nil {
		return err
	}
	if node.ws != nil {
		return fmt.Errorf("router: websocket handler already registered for %s", path)
	}
	node.ws = &ws
	return nil
}

func (r *Router) insert(path string) (*Node, error) {
	segs := splitPath(path)
	node := r.root
	for _, seg := range segs {
		kind, name, pattern := classify(seg)
		switch kind {
		case segStatic:
			child, ok := node.static[seg]
			if !ok {
				child = newNode()
				node.static[seg] = child
			}
			node = child
		case segParam:
			if node.param == nil {
				node.param = newNode()
				node.paramName = name
			} else if node.paramName != name {
				return nil, fmt.Errorf("router: conflicting parameter name %q vs %q at %q", name, node.paramName, path)
			}
			node = node.param
		case segRegex:
			var child *regexChild
			for _, rc := range node.regexes {
				if rc.name == name && rc.re.String() == "^(?:"+pattern+")$" {
					child = rc
					break
				}
			}
			if child == nil {
				re, err := regexp.Compile("^(?:" + pattern + ")$")
				if err != nil {
					return nil, fmt.Errorf("router: bad regex segment %q: %w", pattern, err)
				}
				child = &regexChild{name: name, re: re, node: newNode()}
				node.regexes = append(node.regexes, child)
			}
			node = child.node
		case segWildcard:
			if node.wildcard == nil {
				node.wildcard = newNode()
			}
			node = node.wildcard
		}
	}
	return node, nil
}
