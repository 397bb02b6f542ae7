// Package model defines the canonical, engine-agnostic representation of an
// analyzed smart-contract project: contracts, functions, parameters, and call
// edges. Every analysis backend normalizes its native output into these types.
//
// The tree is built once during an engine load and treated as read-only
// afterwards, so concurrent queries need no synchronization.
package model

import "strings"

// Location is a 1-based inclusive line range inside a source file.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Param is a declared function parameter. Name may be empty for unnamed
// parameters; identity is positional.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Call is an outgoing call edge recorded on the calling function.
// Contract and Signature are best-effort for targets outside the analyzed
// set (libraries, interfaces, dynamic dispatch); File is empty when the
// callee's defining file is unknown. Unresolvable calls are preserved,
// never dropped.
type Call struct {
	Contract  string `json:"module"`
	Signature string `json:"function"`
	File      string `json:"file,omitempty"`
}

// Function holds the normalized facts for a single function.
type Function struct {
	// Signature is the canonical form: name(type1,type2), no whitespace,
	// no return types. See Canonical.
	Signature string

	// Visibility and Mutability are engine-reported strings, opaque to
	// the core ("public", "view", ...). Either may be empty.
	Visibility string
	Mutability string

	Params []Param

	// StateReads and StateWrites list state variables touched by the
	// function body, when the backend can determine them.
	StateReads  []string
	StateWrites []string

	// Source is the verbatim slice of the original file covering the
	// function, braces included.
	Source   string
	Location Location

	// Calls are outgoing edges in declaration order, deduplicated per
	// (callee contract, callee signature).
	Calls []Call
}

// Contract is one contract, library, or interface.
type Contract struct {
	Name        string
	Kind        string
	File        string
	Inheritance []string

	functions []*Function
	bySig     map[string]int
}

// AddFunction appends a function, replacing any prior entry with the same
// signature (overloads are distinct signatures, so this only fires on
// duplicate declarations reported by a backend).
func (c *Contract) AddFunction(fn *Function) {
	if c.bySig == nil {
		c.bySig = make(map[string]int)
	}
	if i, ok := c.bySig[fn.Signature]; ok {
		c.functions[i] = fn
		return
	}
	c.bySig[fn.Signature] = len(c.functions)
	c.functions = append(c.functions, fn)
}

// Function returns the function with the given canonical signature.
func (c *Contract) Function(signature string) (*Function, bool) {
	i, ok := c.bySig[signature]
	if !ok {
		return nil, false
	}
	return c.functions[i], true
}

// Functions returns all functions in declaration order.
func (c *Contract) Functions() []*Function {
	return c.functions
}

// Project is the root aggregate owning all contracts. Contract names are
// unique within a project.
type Project struct {
	// Metadata carries engine-reported details (engine name, toolchain
	// version) for diagnostics.
	Metadata map[string]string

	contracts []*Contract
	byName    map[string]int
}

// NewProject returns an empty project.
func NewProject() *Project {
	return &Project{
		Metadata: make(map[string]string),
		byName:   make(map[string]int),
	}
}

// AddContract registers a contract, replacing any prior contract with the
// same name (last write wins, matching engine re-analysis semantics).
func (p *Project) AddContract(c *Contract) {
	if i, ok := p.byName[c.Name]; ok {
		p.contracts[i] = c
		return
	}
	p.byName[c.Name] = len(p.contracts)
	p.contracts = append(p.contracts, c)
}

// Contract returns the contract with the given name.
func (p *Project) Contract(name string) (*Contract, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.contracts[i], true
}

// Contracts returns all contracts in registration order.
func (p *Project) Contracts() []*Contract {
	return p.contracts
}

// Ref identifies a function by contract name and canonical signature.
type Ref struct {
	Contract  string
	Signature string
}

// String renders the reference as Contract.signature, the form used in
// call-graph output. A reference with no contract (an unresolved call
// target) renders as the bare signature.
func (r Ref) String() string {
	if r.Contract == "" {
		return r.Signature
	}
	return r.Contract + "." + r.Signature
}

// Edge is a directed call-graph edge between two function references.
type Edge struct {
	Caller Ref
	Callee Ref
}

// Signature builds a canonical signature from a function name and its
// parameter types.
func Signature(name string, types []string) string {
	return name + "(" + strings.Join(types, ",") + ")"
}

// Canonical normalizes a signature string into the fixed textual form
// name(type1,type2): whitespace removed, parameter names and storage
// locations dropped, any return-type suffix stripped. Canonical is
// idempotent: applying it to an already-canonical signature yields the
// same string.
func Canonical(sig string) string {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return sig
	}
	name := strings.TrimSpace(sig[:open])

	// Find the matching close paren so return-type suffixes like
	// " returns (bool)" are dropped rather than parsed.
	depth := 0
	end := -1
	for i := open; i < len(sig); i++ {
		switch sig[i] {
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
		end = len(sig)
	}

	inner := sig[open+1 : end]
	if strings.TrimSpace(inner) == "" {
		return name + "()"
	}

	var types []string
	for _, arg := range splitTopLevel(inner) {
		types = append(types, paramType(arg))
	}
	return name + "(" + strings.Join(types, ",") + ")"
}

// splitTopLevel splits on commas that are not nested inside parentheses
// or brackets, so function types and fixed-size arrays survive intact.
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
	parts = append(parts, s[last:])
	return parts
}

// paramType extracts the declared type from one parameter fragment,
// dropping the parameter name and storage-location keywords. The type
// is the leading balanced token: spaces inside parentheses or brackets
// belong to the type ("mapping(address => uint256)"), spaces at depth
// zero end it ("uint256[] memory amounts" keeps "uint256[]").
func paramType(arg string) string {
	arg = strings.TrimSpace(arg)
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
