package solc

import (
	"sort"
	"strconv"
	"strings"
)

// astNode is one node of the solc compact AST. The AST is deeply
// polymorphic, so nodes are walked generically through their nodeType
// discriminator rather than decoded into fixed structs.
type astNode = map[string]any

func nodeType(n astNode) string { return str(n, "nodeType") }

func str(n astNode, key string) string {
	s, _ := n[key].(string)
	return s
}

func boolean(n astNode, key string) bool {
	b, _ := n[key].(bool)
	return b
}

func id(n astNode) (int64, bool) {
	f, ok := n["id"].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func refID(n astNode) (int64, bool) {
	f, ok := n["referencedDeclaration"].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func child(n astNode, key string) astNode {
	c, _ := n[key].(map[string]any)
	return c
}

func children(n astNode, key string) []astNode {
	raw, _ := n[key].([]any)
	out := make([]astNode, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// typeString returns the node's typeDescriptions.typeString.
func typeString(n astNode) string {
	return str(child(n, "typeDescriptions"), "typeString")
}

// parseSrc splits a solc src attribute ("start:length:fileIndex") into
// byte offset and length.
func parseSrc(src string) (start, length int, ok bool) {
	parts := strings.SplitN(src, ":", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(parts[0])
	length, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, length, true
}

// walk visits n and every descendant node, depth-first. The solc AST
// keys its children under many names, so every map and slice value is
// inspected; sibling keys are descended in sorted order so traversal
// is deterministic. Visitors that need document order sort by the
// nodes' src offsets.
func walk(n astNode, visit func(astNode)) {
	if n == nil {
		return
	}
	visit(n)
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch val := n[k].(type) {
		case map[string]any:
			if _, isNode := val["nodeType"]; isNode {
				walk(val, visit)
			}
		case []any:
			for _, item := range val {
				if m, ok := item.(map[string]any); ok {
					if _, isNode := m["nodeType"]; isNode {
						walk(m, visit)
					}
				}
			}
		}
	}
}

// cleanType normalizes a solc typeString into the canonical parameter
// type used in signatures: reference prefixes and storage locations are
// dropped, and payable addresses collapse to address.
func cleanType(ts string) string {
	for _, prefix := range []string{"contract ", "struct ", "enum ", "library "} {
		ts = strings.TrimPrefix(ts, prefix)
	}
	for _, suffix := range []string{" storage pointer", " storage ref", " calldata", " memory", " storage"} {
		ts = strings.TrimSuffix(ts, suffix)
	}
	if ts == "address payable" {
		return "address"
	}
	return ts
}

// memberSignature derives a canonical signature for an external member
// call from the member's function typeString, e.g.
// "function (address,uint256) external returns (bool)" -> name(address,uint256).
func memberSignature(name, ts string) (string, bool) {
	open := strings.IndexByte(ts, '(')
	if !strings.HasPrefix(ts, "function") || open < 0 {
		return "", false
	}
	depth := 0
	end := -1
	for i := open; i < len(ts); i++ {
		switch ts[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return "", false
	}
	inner := ts[open+1 : end]
	if strings.TrimSpace(inner) == "" {
		return name + "()", true
	}
	var types []string
	for _, part := range strings.Split(inner, ",") {
		types = append(types, cleanType(strings.TrimSpace(part)))
	}
	return name + "(" + strings.Join(types, ",") + ")", true
}
