package source

import (
	"regexp"
	"strings"

	"github.com/chainlens/solgraph/internal/solfiles"
	"github.com/chainlens/solgraph/pkg/model"
)

// rawContract is a contract declaration found by the scanner, before
// call edges are resolved against the rest of the project.
type rawContract struct {
	name        string
	kind        string
	inheritance []string
	stateVars   []string
	functions   []*rawFunction
}

// rawFunction carries the scanned spans needed for call extraction.
type rawFunction struct {
	name       string
	signature  string
	params     []model.Param
	visibility string
	mutability string
	source     string
	body       string
	startLine  int
	endLine    int
}

var (
	contractHeaderRe = regexp.MustCompile(`(?m)^\s*(abstract\s+)?(contract|library|interface)\s+([A-Za-z_$][\w$]*)`)
	functionHeaderRe = regexp.MustCompile(`\b(function\s+([A-Za-z_$][\w$]*)|constructor|receive|fallback)\s*\(`)
	callSiteRe       = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)
	stateVarRe       = regexp.MustCompile(`^\s*(?:mapping\s*\(.*\)|[A-Za-z_$][\w$]*(?:\[\s*\d*\s*\])*)\s+(?:(?:public|private|internal|constant|immutable|override)\s+)*([A-Za-z_$][\w$]*)\s*(?:=|;)`)
)

// notCallees are identifiers followed by '(' that are never user
// function calls: control flow, builtins, type casts, and ABI helpers.
var notCallees = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "return": true,
	"returns": true, "require": true, "assert": true, "revert": true,
	"emit": true, "new": true, "function": true, "modifier": true,
	"assembly": true, "unchecked": true, "catch": true, "try": true,
	"keccak256": true, "sha256": true, "ripemd160": true, "ecrecover": true,
	"addmod": true, "mulmod": true, "blockhash": true, "gasleft": true,
	"selfdestruct": true, "payable": true, "address": true, "type": true,
	"bool": true, "string": true, "mapping": true, "using": true, "event": true,
}

// notReceivers are member-access receivers that denote builtins rather
// than contract instances.
var notReceivers = map[string]bool{
	"abi": true, "msg": true, "block": true, "tx": true, "this": true,
	"super": true, "bytes": true, "string": true, "type": true,
}

func isTypeCast(name string) bool {
	if notCallees[name] {
		return true
	}
	for _, prefix := range []string{"uint", "int", "bytes"} {
		if strings.HasPrefix(name, prefix) {
			rest := name[len(prefix):]
			if rest == "" || strings.TrimLeft(rest, "0123456789") == "" {
				return true
			}
		}
	}
	return false
}

// matchBrace returns the offset of the '}' closing the '{' at open,
// or -1 when the braces are unbalanced.
func matchBrace(content string, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// scanFile extracts every contract declaration from one source file.
func scanFile(content string) []*rawContract {
	offsets := solfiles.LineOffsets(content)
	var contracts []*rawContract
	for _, loc := range contractHeaderRe.FindAllStringSubmatchIndex(content, -1) {
		kind := content[loc[4]:loc[5]]
		name := content[loc[6]:loc[7]]
		open := strings.IndexByte(content[loc[1]:], '{')
		if open < 0 {
			continue
		}
		open += loc[1]
		close := matchBrace(content, open)
		if close < 0 {
			continue
		}
		contract := &rawContract{
			name:        name,
			kind:        kind,
			inheritance: parseInheritance(content[loc[1]:open]),
		}
		body := content[open+1 : close]
		bodyOffset := open + 1
		contract.functions = scanFunctions(content, body, bodyOffset, offsets)
		contract.stateVars = scanStateVars(body, contract.functions)
		contracts = append(contracts, contract)
	}
	return contracts
}

// parseInheritance reads the "is Base1, Base2" clause between the
// contract name and the opening brace.
func parseInheritance(clause string) []string {
	clause = strings.TrimSpace(clause)
	if !strings.HasPrefix(clause, "is") {
		return nil
	}
	var bases []string
	for _, part := range strings.Split(clause[2:], ",") {
		part = strings.TrimSpace(part)
		// Drop constructor arguments: "Base(arg)" -> "Base".
		if i := strings.IndexByte(part, '('); i >= 0 {
			part = part[:i]
		}
		if part != "" {
			bases = append(bases, part)
		}
	}
	return bases
}

// scanFunctions finds every function, constructor, receive, and
// fallback declaration inside a contract body. file is the whole file
// content; body is the contract body slice starting at bodyOffset.
func scanFunctions(file, body string, bodyOffset int, offsets []int) []*rawFunction {
	var fns []*rawFunction
	depth := 0
	for _, loc := range functionHeaderRe.FindAllStringSubmatchIndex(body, -1) {
		depth = braceDepth(body[:loc[0]])
		if depth != 0 {
			// Function types and nested definitions inside bodies are
			// not declarations.
			continue
		}
		fn := scanFunction(file, bodyOffset+loc[0], offsets)
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	return fns
}

func braceDepth(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return depth
}

// scanFunction parses one declaration starting at the keyword offset.
func scanFunction(file string, start int, offsets []int) *rawFunction {
	m := functionHeaderRe.FindStringSubmatchIndex(file[start:])
	if m == nil || m[0] != 0 {
		return nil
	}
	var name string
	if m[4] >= 0 {
		name = file[start+m[4] : start+m[5]]
	} else {
		// constructor / receive / fallback keyword form.
		name = strings.TrimSpace(strings.TrimSuffix(file[start+m[0]:start+m[1]], "("))
		name = strings.Fields(name)[0]
	}

	parenOpen := start + m[1] - 1
	parenClose := matchParen(file, parenOpen)
	if parenClose < 0 {
		return nil
	}
	params := parseParams(file[parenOpen+1 : parenClose])

	// The body opens at the first top-level '{' after the parameter
	// list; a ';' first means a bodiless declaration (interface or
	// abstract function).
	bodyOpen, terminator := findBodyOpen(file, parenClose+1)
	if terminator < 0 {
		return nil
	}

	end := terminator
	var body string
	if bodyOpen >= 0 {
		end = matchBrace(file, bodyOpen)
		if end < 0 {
			return nil
		}
		body = file[bodyOpen+1 : end]
	}

	modifiers := file[parenClose+1:terminatorStart(bodyOpen, terminator)]
	typeNames := make([]string, len(params))
	for i, p := range params {
		typeNames[i] = p.Type
	}
	return &rawFunction{
		name: name,
		// Canonical collapses multi-word types ("address payable") so
		// stored signatures match canonicalized lookups.
		signature:  model.Canonical(model.Signature(name, typeNames)),
		params:     params,
		visibility: firstKeyword(modifiers, "public", "external", "internal", "private"),
		mutability: firstKeyword(modifiers, "view", "pure", "payable"),
		source:     file[start : end+1],
		body:       body,
		startLine:  solfiles.LineAt(offsets, start),
		endLine:    solfiles.LineAt(offsets, end),
	}
}

func terminatorStart(bodyOpen, terminator int) int {
	if bodyOpen >= 0 {
		return bodyOpen
	}
	return terminator
}

// findBodyOpen scans from pos for the function body '{' or the
// terminating ';', skipping over the parenthesized returns clause.
// Returns (-1, pos) for bodiless declarations and (open, open) for
// declarations with a body; (-1, -1) when neither is found.
func findBodyOpen(file string, pos int) (int, int) {
	depth := 0
	for i := pos; i < len(file); i++ {
		switch file[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '{':
			if depth == 0 {
				return i, i
			}
		case ';':
			if depth == 0 {
				return -1, i
			}
		}
	}
	return -1, -1
}

func matchParen(content string, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseParams splits a parameter list into name/type pairs. Storage
// location keywords are dropped; unnamed parameters keep an empty name.
func parseParams(list string) []model.Param {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var params []model.Param
	for _, arg := range splitTopLevel(list) {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		typ := typeToken(arg)
		rest := strings.Fields(arg[len(typ):])
		p := model.Param{Type: typ}
		for _, f := range rest {
			switch f {
			case "memory", "calldata", "storage", "payable", "indexed":
			default:
				p.Name = f
			}
		}
		// "address payable" is part of the type, not a location.
		if p.Name == "" && typ == "address" && len(rest) == 1 && rest[0] == "payable" {
			p.Type = "address payable"
		}
		params = append(params, p)
	}
	return params
}

// typeToken returns the leading balanced type token of a parameter
// fragment: spaces inside parentheses or brackets belong to the type
// ("mapping(address => uint256)"), spaces at depth zero end it.
func typeToken(arg string) string {
	depth := 0
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ' ', '\t':
			if depth == 0 {
				return arg[:i]
			}
		}
	}
	return arg
}

func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

func firstKeyword(s string, keywords ...string) string {
	fields := strings.Fields(s)
	for _, f := range fields {
		for _, k := range keywords {
			if f == k {
				return k
			}
		}
	}
	return ""
}

// scanStateVars collects state variable names declared in the contract
// body outside any function.
func scanStateVars(body string, fns []*rawFunction) []string {
	// Blank out function bodies so their locals are not mistaken for
	// state declarations.
	cleaned := body
	for _, fn := range fns {
		cleaned = strings.Replace(cleaned, fn.source, "", 1)
	}
	var vars []string
	for _, line := range strings.Split(cleaned, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") ||
			strings.HasPrefix(trimmed, "event ") || strings.HasPrefix(trimmed, "using ") ||
			strings.HasPrefix(trimmed, "modifier ") || strings.HasPrefix(trimmed, "function ") {
			continue
		}
		if m := stateVarRe.FindStringSubmatch(line); m != nil {
			vars = append(vars, m[1])
		}
	}
	return vars
}

// countArgs returns the number of top-level comma-separated arguments
// in a call argument list.
func countArgs(list string) int {
	if strings.TrimSpace(list) == "" {
		return 0
	}
	return len(splitTopLevel(list))
}
