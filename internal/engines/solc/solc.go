// Package solc implements the default analysis engine: an adapter over
// the Solidity compiler's compact AST output. It shells out to solc,
// walks the AST of every source file, and normalizes declarations and
// call edges into the canonical model.
package solc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/chainlens/solgraph/internal/solfiles"
	"github.com/chainlens/solgraph/pkg/engine"
	"github.com/chainlens/solgraph/pkg/model"
)

// Name is the registry name of this engine.
const Name = "solc"

// defaultBinary is the compiler resolved from PATH when no explicit
// path is configured.
const defaultBinary = "solc"

// New constructs a solc engine bound to projectPath. It matches
// engine.Factory.
func New(projectPath string, opts engine.Options) engine.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{projectPath: projectPath, solcPath: opts.SolcPath, logger: logger}
	e.Analyze = e.analyze
	return e
}

// Engine adapts solc compact-AST output to the canonical model.
type Engine struct {
	engine.Base
	projectPath string
	solcPath    string
	logger      *slog.Logger
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// combinedOutput is the shape of `solc --combined-json ast`.
type combinedOutput struct {
	Version string `json:"version"`
	Sources map[string]struct {
		AST astNode `json:"AST"`
	} `json:"sources"`
}

// declaration locates a function declaration by AST node id, used to
// resolve referencedDeclaration links on call sites.
type declaration struct {
	contract  string
	signature string
	file      string
}

func (e *Engine) analyze(ctx context.Context) (*model.Project, error) {
	bin := e.solcPath
	if bin == "" {
		bin = defaultBinary
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, &engine.LoadError{
			Kind:    engine.EnvironmentMissing,
			Engine:  Name,
			Project: e.projectPath,
			Err:     fmt.Errorf("compiler %q not found on PATH (install solidity or set --solc): %w", bin, err),
		}
	}

	files, err := solfiles.Collect(e.projectPath)
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.ProjectInvalid, Engine: Name, Project: e.projectPath, Err: err}
	}

	contents := make(map[string]string, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, &engine.LoadError{Kind: engine.ProjectInvalid, Engine: Name, Project: e.projectPath, Err: err}
		}
		contents[file] = string(data)
	}

	combined, err := e.compile(ctx, bin, files)
	if err != nil {
		return nil, err
	}

	project := model.NewProject()
	project.Metadata["engine"] = Name
	if combined.Version != "" {
		project.Metadata["solc_version"] = combined.Version
	}

	// Pass 1: index every function and state variable declaration by
	// AST id, across all sources, so call sites resolve globally.
	decls := make(map[int64]declaration)
	stateVars := make(map[int64]string)
	eventIDs := make(map[int64]bool)

	type pendingContract struct {
		node astNode
		file string
	}
	var pending []pendingContract

	paths := make([]string, 0, len(combined.Sources))
	for p := range combined.Sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		root := combined.Sources[path].AST
		for _, node := range children(root, "nodes") {
			switch nodeType(node) {
			case "FunctionDefinition":
				// Free function: no owning contract.
				if declID, ok := id(node); ok {
					decls[declID] = declaration{signature: functionSignature(node), file: path}
				}
				continue
			case "EventDefinition":
				if declID, ok := id(node); ok {
					eventIDs[declID] = true
				}
				continue
			case "ContractDefinition":
			default:
				continue
			}
			pending = append(pending, pendingContract{node: node, file: path})
			contractName := str(node, "name")
			for _, member := range children(node, "nodes") {
				switch nodeType(member) {
				case "FunctionDefinition":
					if declID, ok := id(member); ok {
						decls[declID] = declaration{
							contract:  contractName,
							signature: functionSignature(member),
							file:      path,
						}
					}
				case "VariableDeclaration":
					if boolean(member, "stateVariable") {
						if declID, ok := id(member); ok {
							stateVars[declID] = str(member, "name")
						}
					}
				case "EventDefinition":
					if declID, ok := id(member); ok {
						eventIDs[declID] = true
					}
				}
			}
		}
	}

	// Pass 2: build the model in sorted-file, then document order.
	for _, pc := range pending {
		contract := e.convertContract(pc.node, pc.file, contents[pc.file], decls, stateVars, eventIDs)
		project.AddContract(contract)
	}
	return project, nil
}

// compile runs solc and decodes its combined-json output.
func (e *Engine) compile(ctx context.Context, bin string, files []string) (*combinedOutput, error) {
	args := append([]string{"--combined-json", "ast"}, files...)
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("invoking compiler", "binary", bin, "files", len(files))
	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return nil, &engine.LoadError{
			Kind:    engine.CompilationFailed,
			Engine:  Name,
			Project: e.projectPath,
			Err:     fmt.Errorf("solc failed: %s", diag),
		}
	}

	var combined combinedOutput
	if err := json.Unmarshal(stdout.Bytes(), &combined); err != nil {
		return nil, &engine.LoadError{
			Kind:    engine.CompilationFailed,
			Engine:  Name,
			Project: e.projectPath,
			Err:     fmt.Errorf("unreadable solc output: %w", err),
		}
	}
	return &combined, nil
}

// convertContract normalizes one ContractDefinition node.
func (e *Engine) convertContract(node astNode, file, content string, decls map[int64]declaration, stateVars map[int64]string, eventIDs map[int64]bool) *model.Contract {
	var inheritance []string
	for _, base := range children(node, "baseContracts") {
		if name := str(child(base, "baseName"), "name"); name != "" {
			inheritance = append(inheritance, name)
		}
	}
	contract := &model.Contract{
		Name:        str(node, "name"),
		Kind:        str(node, "contractKind"),
		File:        file,
		Inheritance: inheritance,
	}

	offsets := solfiles.LineOffsets(content)
	for _, member := range children(node, "nodes") {
		if nodeType(member) != "FunctionDefinition" {
			continue
		}
		contract.AddFunction(e.convertFunction(member, file, content, offsets, decls, stateVars, eventIDs))
	}
	return contract
}

// convertFunction normalizes one FunctionDefinition node, mapping its
// src byte range to 1-based lines and extracting parameters, call
// edges, and state-variable access.
func (e *Engine) convertFunction(node astNode, file, content string, offsets []int, decls map[int64]declaration, stateVars map[int64]string, eventIDs map[int64]bool) *model.Function {
	var params []model.Param
	for _, p := range children(child(node, "parameters"), "parameters") {
		params = append(params, model.Param{
			Name: str(p, "name"),
			Type: cleanType(typeString(p)),
		})
	}

	fn := &model.Function{
		Signature:  functionSignature(node),
		Visibility: str(node, "visibility"),
		Mutability: str(node, "stateMutability"),
		Params:     params,
		Location:   model.Location{File: file},
	}

	if start, length, ok := parseSrc(str(node, "src")); ok && start+length <= len(content) {
		fn.Source = content[start : start+length]
		fn.Location.StartLine = solfiles.LineAt(offsets, start)
		fn.Location.EndLine = solfiles.LineAt(offsets, start+length-1)
	} else {
		// An unusable src range still yields a valid 1-based location.
		fn.Location.StartLine = 1
		fn.Location.EndLine = 1
	}

	if body := child(node, "body"); body != nil {
		fn.Calls = e.extractCalls(body, decls, eventIDs)
		fn.StateReads, fn.StateWrites = stateAccess(body, stateVars)
	}
	return fn
}

// functionSignature renders the canonical signature for a
// FunctionDefinition. Constructors, receive, and fallback keep their
// keyword as the name, as Slither-style tools do.
func functionSignature(node astNode) string {
	name := str(node, "name")
	if name == "" {
		name = str(node, "kind")
	}
	var types []string
	for _, p := range children(child(node, "parameters"), "parameters") {
		types = append(types, cleanType(typeString(p)))
	}
	return model.Canonical(model.Signature(name, types))
}

// callSite pairs a resolved callee with the byte offset of its call
// expression, so edges can be ordered by position in the source.
type callSite struct {
	offset int
	call   model.Call
}

// extractCalls walks a function body for FunctionCall nodes and
// resolves each callee. Sites are sorted by src byte offset before
// deduplication, so edge order follows the source text regardless of
// AST traversal order. Edges are deduplicated per caller by
// (callee contract, callee signature): the graph records structural
// reachability, not call-site multiplicity. Unresolvable targets keep
// a best-effort module name and signature instead of being dropped.
func (e *Engine) extractCalls(body astNode, decls map[int64]declaration, eventIDs map[int64]bool) []model.Call {
	var sites []callSite
	record := func(n astNode, c model.Call) {
		offset, _, _ := parseSrc(str(n, "src"))
		sites = append(sites, callSite{offset: offset, call: c})
	}

	walk(body, func(n astNode) {
		if nodeType(n) != "FunctionCall" || str(n, "kind") != "functionCall" {
			return
		}
		expr := child(n, "expression")
		switch nodeType(expr) {
		case "Identifier":
			rid, ok := refID(expr)
			if !ok || rid < 0 || eventIDs[rid] {
				// Builtins (require, assert, ...) carry negative ids;
				// event references are not calls.
				return
			}
			if d, found := decls[rid]; found {
				record(n, model.Call{Contract: d.contract, Signature: d.signature, File: d.file})
				return
			}
			// A function-typed variable or unexported declaration.
			record(n, model.Call{Signature: str(expr, "name") + "()"})
		case "MemberAccess":
			member := str(expr, "memberName")
			if rid, ok := refID(expr); ok && rid > 0 {
				if d, found := decls[rid]; found {
					record(n, model.Call{Contract: d.contract, Signature: d.signature, File: d.file})
					return
				}
			}
			recvType := typeString(child(expr, "expression"))
			if !strings.HasPrefix(recvType, "contract ") && !strings.HasPrefix(recvType, "library ") {
				// address.call, abi.encode and friends.
				return
			}
			call := model.Call{Contract: cleanType(recvType)}
			if sig, ok := memberSignature(member, typeString(expr)); ok {
				call.Signature = sig
			} else {
				call.Signature = member + "()"
			}
			record(n, call)
		}
	})

	sort.SliceStable(sites, func(i, j int) bool { return sites[i].offset < sites[j].offset })

	var calls []model.Call
	seen := make(map[string]bool)
	for _, s := range sites {
		key := s.call.Contract + "\x00" + s.call.Signature
		if seen[key] {
			continue
		}
		seen[key] = true
		calls = append(calls, s.call)
	}
	return calls
}

// stateAccess classifies state-variable references in a body into reads
// and writes. Assignment targets and ++/--/delete operands count as
// writes; compound assignments count as both.
func stateAccess(body astNode, stateVars map[int64]string) (reads, writes []string) {
	readSet := make(map[string]bool)
	writeSet := make(map[string]bool)
	// src positions of identifiers consumed as pure assignment targets,
	// so `x = 1` does not also count as a read of x.
	writeOnly := make(map[string]bool)

	markTargets := func(target astNode, alsoRead bool) {
		walk(target, func(n astNode) {
			if nodeType(n) != "Identifier" {
				return
			}
			rid, ok := refID(n)
			if !ok {
				return
			}
			name, isState := stateVars[rid]
			if !isState {
				return
			}
			writeSet[name] = true
			if alsoRead {
				readSet[name] = true
			} else {
				writeOnly[str(n, "src")] = true
			}
		})
	}

	walk(body, func(n astNode) {
		switch nodeType(n) {
		case "Assignment":
			markTargets(child(n, "leftHandSide"), str(n, "operator") != "=")
		case "UnaryOperation":
			switch str(n, "operator") {
			case "++", "--", "delete":
				markTargets(child(n, "subExpression"), true)
			}
		}
	})

	walk(body, func(n astNode) {
		if nodeType(n) != "Identifier" || writeOnly[str(n, "src")] {
			return
		}
		if rid, ok := refID(n); ok {
			if name, isState := stateVars[rid]; isState {
				readSet[name] = true
			}
		}
	})

	return sortedKeys(readSet), sortedKeys(writeSet)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
