// Package source implements the built-in "source" analysis engine: a
// pure-Go Solidity scanner that extracts contracts, functions, and call
// edges directly from source text, without any compiler toolchain.
//
// Its facts are heuristic rather than compiler-verified, but it works on
// projects that do not compile and on machines without solc, and it is
// the hermetic backend used by the test suite.
package source

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/chainlens/solgraph/internal/solfiles"
	"github.com/chainlens/solgraph/pkg/engine"
	"github.com/chainlens/solgraph/pkg/model"
)

// Name is the registry name of this engine.
const Name = "source"

// New constructs a source engine bound to projectPath. It matches
// engine.Factory.
func New(projectPath string, opts engine.Options) engine.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{projectPath: projectPath, logger: logger}
	e.Analyze = e.analyze
	return e
}

// Engine scans Solidity sources directly.
type Engine struct {
	engine.Base
	projectPath string
	logger      *slog.Logger
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// scanned ties a parsed contract to its defining file.
type scanned struct {
	raw  *rawContract
	file string
}

func (e *Engine) analyze(ctx context.Context) (*model.Project, error) {
	files, err := solfiles.Collect(e.projectPath)
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.ProjectInvalid, Engine: Name, Project: e.projectPath, Err: err}
	}

	// First pass: declare every contract so the second pass can resolve
	// cross-contract calls by name.
	byName := make(map[string]*scanned)
	var order []*scanned
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, &engine.LoadError{Kind: engine.ProjectInvalid, Engine: Name, Project: e.projectPath, Err: err}
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, &engine.LoadError{Kind: engine.ProjectInvalid, Engine: Name, Project: e.projectPath, Err: err}
		}
		for _, raw := range scanFile(string(content)) {
			s := &scanned{raw: raw, file: file}
			byName[raw.name] = s
			order = append(order, s)
			e.logger.Debug("scanned contract", "contract", raw.name, "file", file, "functions", len(raw.functions))
		}
	}

	project := model.NewProject()
	project.Metadata["engine"] = Name

	for _, s := range order {
		contract := &model.Contract{
			Name:        s.raw.name,
			Kind:        s.raw.kind,
			File:        s.file,
			Inheritance: s.raw.inheritance,
		}
		for _, fn := range s.raw.functions {
			contract.AddFunction(&model.Function{
				Signature:   fn.signature,
				Visibility:  fn.visibility,
				Mutability:  fn.mutability,
				Params:      fn.params,
				StateReads:  stateVarUses(fn.body, s.raw.stateVars, false),
				StateWrites: stateVarUses(fn.body, s.raw.stateVars, true),
				Source:      fn.source,
				Location: model.Location{
					File:      s.file,
					StartLine: fn.startLine,
					EndLine:   fn.endLine,
				},
				Calls: extractCalls(fn, s, byName),
			})
		}
		project.AddContract(contract)
	}
	return project, nil
}

// extractCalls finds the outgoing call edges of one function body and
// resolves each callee against the scanned project. Repeated calls to
// the same (contract, signature) pair collapse into one edge: the call
// graph tracks structural reachability, not call-site counts.
// Targets that cannot be resolved keep a best-effort module name and a
// sentinel signature with "?" in place of unknown parameter types.
func extractCalls(fn *rawFunction, own *scanned, byName map[string]*scanned) []model.Call {
	var calls []model.Call
	seen := make(map[string]bool)
	add := func(c model.Call) {
		key := c.Contract + "\x00" + c.Signature
		if seen[key] {
			return
		}
		seen[key] = true
		calls = append(calls, c)
	}

	body := fn.body
	for _, loc := range callSiteRe.FindAllStringSubmatchIndex(body, -1) {
		name := body[loc[2]:loc[3]]
		if isTypeCast(name) {
			continue
		}
		switch prevWord(body, loc[2]) {
		case "emit", "new", "function", "event", "modifier", "returns", "error":
			continue
		}
		argc := callArgCount(body, loc[1]-1)

		receiver, hasReceiver := receiverOf(body, loc[2])
		if hasReceiver {
			switch {
			case receiver == "this", receiver == "super":
				if c, ok := resolveInternal(name, argc, own, byName); ok {
					add(c)
				}
				continue
			case notReceivers[receiver], isTypeCast(receiver):
				// Builtin namespaces and cast-to-address forms like
				// payable(to).transfer(...) are not contract calls.
				continue
			}
			if target, ok := byName[receiver]; ok {
				// Library or contract referenced by name, e.g.
				// SafeMath.add(a, b).
				add(resolveIn(target, name, argc))
				continue
			}
			// A typed variable or external interface we did not
			// analyze: keep the edge with the receiver text as the
			// best-effort module name.
			add(model.Call{Contract: receiver, Signature: unresolvedSignature(name, argc)})
			continue
		}

		if _, isContract := byName[name]; isContract {
			// Bare ContractName(expr) is a type conversion, not a call.
			continue
		}
		if c, ok := resolveInternal(name, argc, own, byName); ok {
			add(c)
			continue
		}
		if followedByMember(body, loc[1]-1) {
			// Cast-receiver form like IERC20(token).transfer(...): the
			// member call carries the edge, not the cast.
			continue
		}
		// Unknown bare callee: a function-typed variable or a function
		// from sources outside the analyzed set.
		add(model.Call{Signature: unresolvedSignature(name, argc)})
	}
	return calls
}

// resolveInternal resolves a bare call against the calling contract and
// then its inheritance chain.
func resolveInternal(name string, argc int, own *scanned, byName map[string]*scanned) (model.Call, bool) {
	visited := map[string]bool{}
	queue := []*scanned{own}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if visited[s.raw.name] {
			continue
		}
		visited[s.raw.name] = true
		if fn, ok := findByName(s.raw, name, argc); ok {
			return model.Call{Contract: s.raw.name, Signature: fn.signature, File: s.file}, true
		}
		for _, base := range s.raw.inheritance {
			if b, ok := byName[base]; ok {
				queue = append(queue, b)
			}
		}
	}
	return model.Call{}, false
}

// resolveIn resolves a member call against one named contract,
// degrading to a sentinel signature when the function is not declared
// there.
func resolveIn(target *scanned, name string, argc int) model.Call {
	if fn, ok := findByName(target.raw, name, argc); ok {
		return model.Call{Contract: target.raw.name, Signature: fn.signature, File: target.file}
	}
	return model.Call{Contract: target.raw.name, Signature: unresolvedSignature(name, argc)}
}

// findByName picks the declared function matching name, preferring an
// overload whose parameter count matches the call site.
func findByName(rc *rawContract, name string, argc int) (*rawFunction, bool) {
	var first *rawFunction
	for _, fn := range rc.functions {
		if fn.name != name {
			continue
		}
		if len(fn.params) == argc {
			return fn, true
		}
		if first == nil {
			first = fn
		}
	}
	return first, first != nil
}

// unresolvedSignature renders a sentinel signature for a callee whose
// parameter types are unknown: one "?" per argument.
func unresolvedSignature(name string, argc int) string {
	if argc == 0 {
		return name + "()"
	}
	marks := make([]string, argc)
	for i := range marks {
		marks[i] = "?"
	}
	return name + "(" + strings.Join(marks, ",") + ")"
}

// receiverOf returns the member-access receiver ending just before
// identStart, if the identifier is called as receiver.name(...).
func receiverOf(body string, identStart int) (string, bool) {
	i := identStart - 1
	for i >= 0 && (body[i] == ' ' || body[i] == '\t' || body[i] == '\n' || body[i] == '\r') {
		i--
	}
	if i < 0 || body[i] != '.' {
		return "", false
	}
	i--
	if i >= 0 && body[i] == ')' {
		// Cast form: IERC20(token).transfer(...). The receiver is the
		// identifier before the parenthesized expression.
		depth := 0
		for ; i >= 0; i-- {
			switch body[i] {
			case ')':
				depth++
			case '(':
				depth--
			}
			if depth == 0 {
				break
			}
		}
		i--
	}
	end := i + 1
	for i >= 0 && isIdentByte(body[i]) {
		i--
	}
	if end == i+1 {
		return "", false
	}
	return body[i+1 : end], true
}

// prevWord returns the identifier immediately preceding pos, used to
// skip "emit Event(...)" and "new Contract(...)" forms.
func prevWord(body string, pos int) string {
	i := pos - 1
	for i >= 0 && (body[i] == ' ' || body[i] == '\t' || body[i] == '\n' || body[i] == '\r') {
		i--
	}
	end := i + 1
	for i >= 0 && isIdentByte(body[i]) {
		i--
	}
	return body[i+1 : end]
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// followedByMember reports whether the argument list opening at open is
// immediately followed by a member access.
func followedByMember(body string, open int) bool {
	close := matchParen(body, open)
	if close < 0 {
		return false
	}
	for i := close + 1; i < len(body); i++ {
		switch body[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '.':
			return true
		default:
			return false
		}
	}
	return false
}

// callArgCount counts the arguments of the call whose '(' sits at open.
func callArgCount(body string, open int) int {
	close := matchParen(body, open)
	if close < 0 {
		return 0
	}
	return countArgs(body[open+1 : close])
}

// stateVarUses reports which of the contract's state variables the body
// writes (assignment, compound assignment, increment, push/pop) or
// reads (any other appearance). Both are heuristic, matching what a
// source-level scan can see.
func stateVarUses(body string, stateVars []string, writes bool) []string {
	var out []string
	for _, name := range stateVars {
		if writes {
			if writeRe(name).MatchString(body) {
				out = append(out, name)
			}
			continue
		}
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(body) {
			out = append(out, name)
		}
	}
	return out
}

func writeRe(name string) *regexp.Regexp {
	q := regexp.QuoteMeta(name)
	return regexp.MustCompile(`\b` + q + `\s*(\[[^\]]*\]\s*)*(=[^=]|\+=|-=|\*=|/=|%=|\+\+|--|\.push\s*\(|\.pop\s*\()`)
}
