// Package ld translates a single Rockwell ladder-diagram rung, given in its
// compact textual form, into a Structured Text fragment.
package ld

import (
	"fmt"
	"strings"
)

// conditions is the closed set of pure boolean mnemonics.
var conditions = map[string]bool{
	"XIC": true, "XIO": true, "EQU": true, "NEQ": true,
	"GRT": true, "GEQ": true, "LES": true, "LEQ": true,
}

// actions is the closed set of side-effecting mnemonics this translator
// understands by name; anything outside this set (and outside conditions)
// is an unknown mnemonic.
var actions = map[string]bool{
	"OTE": true, "OTL": true, "OTU": true, "CLR": true, "NOP": true,
	"MOV": true, "COP": true, "CPS": true, "FLL": true,
	"ADD": true, "SUB": true, "MUL": true, "DIV": true, "MOD": true,
	"SQR": true, "ABS": true,
	"TON": true, "TOF": true, "TONR": true, "RES": true,
	"CTU": true, "CTD": true, "CTUD": true,
	"MSG": true, "JSR": true, "GSV": true, "SSV": true,
	"OSR": true, "OSF": true, "RTRIG": true, "FTRIG": true,
	"BTD": true, "DTB": true, "FRD": true, "TOD": true,
	// Supplemental mnemonics, grounded on the reference instruction table,
	// rendered as commented markers rather than full control flow.
	"FOR": true, "NXT": true, "JMP": true, "LBL": true,
	"SBR": true, "RET": true, "END": true,
}

// call is one parsed instruction invocation: a mnemonic and its raw,
// comma-split parameter list.
type call struct {
	Name   string
	Params []string
	Raw    string // original "NAME(p1,p2,...)" text, for error messages.
}

func (c call) isCondition() bool { return conditions[strings.ToUpper(c.Name)] }
func (c call) isAction() bool    { return actions[strings.ToUpper(c.Name)] }
func (c call) isKnown() bool     { return c.isCondition() || c.isAction() }

// term is one element of the flat, ordered sequence the rung parses into:
// either a single call, or a bracketed OR-group of AND-chains of calls.
type term struct {
	Atom    *call
	Or      [][]call // present when Atom is nil; each inner slice is AND'd, outer slices OR'd.
}

func (t term) isCondition() bool {
	if t.Atom != nil {
		return t.Atom.isCondition()
	}
	for _, branch := range t.Or {
		for _, c := range branch {
			if !c.isCondition() {
				return false
			}
		}
	}
	return len(t.Or) > 0
}

// Translate parses a single rung's compact text and returns its ST
// translation. Unknown mnemonics and arity mismatches are rendered inline
// as "// ERROR: ..." comments; Translate never returns an error, matching
// the Translation error category's "does not abort" policy.
func Translate(rung string) (st string) {
	defer func() {
		if r := recover(); r != nil {
			st = fmt.Sprintf("// Error translating ladder logic: %v\n// Original: %s", r, rung)
		}
	}()
	norm := normalize(rung)
	terms := tokenize(norm)
	return emit(terms, "")
}

// normalize strips whitespace, replaces [ ] with the < > bracket surrogates,
// and converts top-level (outside any call's parameters and outside any
// bracket span) commas into ';'. Commas inside a bracket span remain commas
// (the OR separator); commas inside a call's parameter list remain commas
// (intra-call parameters).
func normalize(rung string) string {
	var b strings.Builder
	parenDepth, bracketDepth := 0, 0
	for _, r := range rung {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		case '(':
			parenDepth++
			b.WriteRune(r)
		case ')':
			if parenDepth > 0 {
				parenDepth--
			}
			b.WriteRune(r)
		case '[':
			bracketDepth++
			b.WriteRune('<')
		case ']':
			if bracketDepth > 0 {
				bracketDepth--
			}
			b.WriteRune('>')
		case ',':
			if parenDepth > 0 || bracketDepth > 0 {
				b.WriteRune(',')
			} else {
				b.WriteRune(';')
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenize walks the normalized text once, producing a flat ordered list of
// terms: each '<...>' span becomes one Or-term, and every other run of
// "NAME(params)" calls becomes a sequence of Atomic terms.
func tokenize(s string) []term {
	var terms []term
	i := 0
	for i < len(s) {
		switch s[i] {
		case ';':
			i++
		case '<':
			end := matchingBracket(s, i)
			inner := s[i+1 : end]
			terms = append(terms, term{Or: splitOrBranches(inner)})
			i = end + 1
		default:
			c, next := parseCall(s, i)
			if next == i {
				// Not a recognizable call start; skip the character to
				// make progress rather than looping forever.
				i++
				continue
			}
			terms = append(terms, term{Atom: &c})
			i = next
		}
	}
	return terms
}

// matchingBracket returns the index of the '>' matching the '<' at start,
// accounting for nested bracket spans.
func matchingBracket(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}

// splitOrBranches splits bracket interior content on top-level (outside
// parens) commas, parsing each branch into an AND chain of calls.
func splitOrBranches(inner string) [][]call {
	var branches [][]call
	depth := 0
	start := 0
	flush := func(end int) {
		branch := parseCallChain(inner[start:end])
		branches = append(branches, branch)
	}
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(inner))
	return branches
}

// parseCallChain parses a string of directly concatenated "NAME(params)"
// calls (no separators between them) into an ordered slice.
func parseCallChain(s string) []call {
	var out []call
	i := 0
	for i < len(s) {
		c, next := parseCall(s, i)
		if next == i {
			break
		}
		out = append(out, c)
		i = next
	}
	return out
}

// parseCall parses one "NAME(params)" call starting at s[i]. It returns the
// zero call and i itself if no call starts there.
func parseCall(s string, i int) (call, int) {
	j := i
	for j < len(s) && isIdentByte(s[j]) {
		j++
	}
	if j == i || j >= len(s) || s[j] != '(' {
		return call{}, i
	}
	name := s[i:j]
	depth := 1
	k := j + 1
	for k < len(s) && depth > 0 {
		switch s[k] {
		case '(':
			depth++
		case ')':
			depth--
		}
		k++
	}
	paramsRaw := s[j+1 : k-1]
	return call{Name: name, Params: splitParams(paramsRaw), Raw: s[i:k]}, k
}

func isIdentByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '_'
}

func splitParams(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// emit renders a flat term sequence as an ST fragment. tab is the base
// indentation prefix for emitted lines. A leading run of conditions becomes
// the guard of an IF wrapping the rest of the rung; the run of actions
// immediately following that guard (up to the next condition, if any) is
// rendered with an ELSE arm for every hasElseForm action, since those
// actions are guarded by exactly this IF, not some inner one. Anything
// after that immediate run is interleaved condition/action structure and is
// delegated to emitBody, nested inside the same IF.
func emit(terms []term, tab string) string {
	k := 0
	for k < len(terms) && terms[k].isCondition() {
		k++
	}
	if k == 0 {
		return emitBody(terms, tab)
	}
	guardExpr := joinAnd(terms[:k])
	rest := terms[k:]

	j := 0
	for j < len(rest) && !rest[j].isCondition() {
		j++
	}
	immediate := rest[:j]

	var b strings.Builder
	fmt.Fprintf(&b, "%sIF (%s) THEN\n", tab, guardExpr)
	for _, a := range immediate {
		b.WriteString(renderAction(a, tab+"\t", true))
	}
	b.WriteString(emitBody(rest[j:], tab+"\t"))
	if anyHasElseForm(immediate) {
		fmt.Fprintf(&b, "%sELSE\n", tab)
		for _, a := range immediate {
			if hasElseForm(a) {
				b.WriteString(renderAction(a, tab+"\t", false))
			}
		}
	}
	fmt.Fprintf(&b, "%sEND_IF;\n", tab)
	return b.String()
}

func anyHasElseForm(terms []term) bool {
	for _, t := range terms {
		if hasElseForm(t) {
			return true
		}
	}
	return false
}

// emitBody renders the action portion of a rung: a sequence of actions,
// each optionally guarded by an immediately preceding run of interleaved
// condition terms.
func emitBody(terms []term, tab string) string {
	var b strings.Builder
	var pending []term
	flushUnconditional := func(t term) {
		b.WriteString(renderAction(t, tab, true))
	}
	flushGuarded := func(guard []term, t term) {
		expr := joinAnd(guard)
		fmt.Fprintf(&b, "%sIF (%s) THEN\n", tab, expr)
		b.WriteString(renderAction(t, tab+"\t", true))
		if hasElseForm(t) {
			fmt.Fprintf(&b, "%sELSE\n", tab)
			b.WriteString(renderAction(t, tab+"\t", false))
		}
		fmt.Fprintf(&b, "%sEND_IF;\n", tab)
	}
	for _, t := range terms {
		if t.isCondition() {
			pending = append(pending, t)
			continue
		}
		if len(pending) > 0 {
			flushGuarded(pending, t)
			pending = nil
		} else {
			flushUnconditional(t)
		}
	}
	return b.String()
}

func joinAnd(terms []term) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, boolExpr(t))
	}
	return strings.Join(parts, " AND ")
}

func boolExpr(t term) string {
	if t.Atom != nil {
		return conditionExpr(*t.Atom)
	}
	branches := make([]string, 0, len(t.Or))
	for _, chain := range t.Or {
		branches = append(branches, andChainExpr(chain))
	}
	return strings.Join(branches, " OR ")
}

// andChainExpr renders an AND'd chain of calls for one OR branch. Each call
// already parenthesizes itself (via conditionExpr), so a single-call chain
// needs no further wrapping; a multi-call chain gets one enclosing paren
// pair so it reads as a unit inside the surrounding OR.
func andChainExpr(chain []call) string {
	sub := make([]string, 0, len(chain))
	for _, c := range chain {
		sub = append(sub, conditionExpr(c))
	}
	if len(sub) == 1 {
		return sub[0]
	}
	return "(" + strings.Join(sub, " AND ") + ")"
}

func conditionExpr(c call) string {
	switch strings.ToUpper(c.Name) {
	case "XIC":
		return andEach(c.Params, "= 1")
	case "XIO":
		return andEach(c.Params, "= 0")
	case "EQU":
		return binaryCompare(c, "=")
	case "NEQ":
		return binaryCompare(c, "<>")
	case "GRT":
		return binaryCompare(c, ">")
	case "GEQ":
		return binaryCompare(c, ">=")
	case "LES":
		return binaryCompare(c, "<")
	case "LEQ":
		return binaryCompare(c, "<=")
	default:
		return "(FALSE /* " + errUnknown(c) + " */)"
	}
}

// andEach renders one comparison per parameter, ANDed together; Rockwell
// allows XIC/XIO to carry several operands meaning all must hold.
func andEach(params []string, suffix string) string {
	if len(params) == 0 {
		return "(" + errArity("", 1, 0) + ")"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("(%s %s)", p, suffix))
	}
	return strings.Join(parts, " AND ")
}

func binaryCompare(c call, op string) string {
	if len(c.Params) != 2 {
		return errArityComment(c, 2)
	}
	return fmt.Sprintf("(%s %s %s)", c.Params[0], op, c.Params[1])
}

// renderAction renders one action term's enabled (then=true) or disabled
// (then=false) form, at the given indentation. Or-terms cannot be actions
// (classification guarantees this) so only Atom is handled here.
func renderAction(t term, tab string, enabled bool) string {
	if t.Atom == nil {
		return tab + "// ERROR: malformed action term\n"
	}
	return renderCall(*t.Atom, tab, enabled)
}

// hasElseForm reports whether the action has a distinct disabled-branch
// rendering (per spec.md's table, only OTE and the timers/counters do).
func hasElseForm(t term) bool {
	if t.Atom == nil {
		return false
	}
	switch strings.ToUpper(t.Atom.Name) {
	case "OTE", "TON", "TOF", "TONR", "CTU", "CTD", "CTUD":
		return true
	default:
		return false
	}
}

func renderCall(c call, tab string, enabled bool) string {
	name := strings.ToUpper(c.Name)
	p := c.Params
	switch name {
	case "OTE":
		if len(p) != 1 {
			return tab + errArityComment(c, 1) + "\n"
		}
		if enabled {
			return fmt.Sprintf("%s%s := 1;\n", tab, p[0])
		}
		return fmt.Sprintf("%s%s := 0;\n", tab, p[0])
	case "OTL":
		if len(p) != 1 {
			return tab + errArityComment(c, 1) + "\n"
		}
		return fmt.Sprintf("%s%s := 1;\n", tab, p[0])
	case "OTU", "CLR":
		if len(p) != 1 {
			return tab + errArityComment(c, 1) + "\n"
		}
		return fmt.Sprintf("%s%s := 0;\n", tab, p[0])
	case "NOP":
		return tab + "(*NOP*)\n"
	case "MOV", "COP":
		if len(p) < 2 {
			return tab + errArityComment(c, 2) + "\n"
		}
		return fmt.Sprintf("%s%s := %s;\n", tab, p[1], p[0])
	case "ADD":
		return arithmetic(c, tab, "+")
	case "SUB":
		return arithmetic(c, tab, "-")
	case "MUL":
		return arithmetic(c, tab, "*")
	case "DIV":
		return arithmetic(c, tab, "/")
	case "MOD":
		return arithmetic(c, tab, "MOD")
	case "SQR":
		if len(p) != 2 {
			return tab + errArityComment(c, 2) + "\n"
		}
		return fmt.Sprintf("%s%s := SQRT(%s);\n", tab, p[1], p[0])
	case "ABS":
		if len(p) != 2 {
			return tab + errArityComment(c, 2) + "\n"
		}
		return fmt.Sprintf("%s%s := ABS(%s);\n", tab, p[1], p[0])
	case "TON", "TOF", "TONR":
		return timer(c, tab, enabled)
	case "CTU":
		return counterUp(c, tab, enabled)
	case "CTD":
		return counterDown(c, tab, enabled)
	case "CTUD":
		return counterUpDown(c, tab, enabled)
	case "RES":
		if len(p) != 1 {
			return tab + errArityComment(c, 1) + "\n"
		}
		return fmt.Sprintf("%s%s.Reset := 1;\n", tab, p[0])
	case "GSV":
		return systemValueGet(c, tab)
	case "SSV":
		return systemValueSet(c, tab)
	case "MSG":
		if len(p) != 1 {
			return tab + errArityComment(c, 1) + "\n"
		}
		return fmt.Sprintf("%s(*MSG(%s)*)\n", tab, p[0])
	case "JSR":
		if len(p) != 1 {
			return tab + errArityComment(c, 1) + "\n"
		}
		return fmt.Sprintf("%s(*JSR to %s*)\n", tab, p[0])
	case "OSR", "OSF", "RTRIG", "FTRIG":
		return fmt.Sprintf("%s%s(%s);\n", tab, name, strings.Join(p, ", "))
	case "BTD":
		return conversion(c, tab, "BCD_TO_INT")
	case "DTB":
		return conversion(c, tab, "INT_TO_BCD")
	case "FRD":
		return conversion(c, tab, "REAL_TO_INT")
	case "TOD":
		return conversion(c, tab, "INT_TO_REAL")
	case "FOR":
		return fmt.Sprintf("%s(*FOR %s*)\n", tab, strings.Join(p, ", "))
	case "NXT":
		return tab + "(*NXT*)\n"
	case "JMP":
		if len(p) == 1 {
			return fmt.Sprintf("%s// JMP to %s\n", tab, p[0])
		}
		return tab + "// JMP\n"
	case "LBL":
		if len(p) == 1 {
			return fmt.Sprintf("%s// LBL %s\n", tab, p[0])
		}
		return tab + "// LBL\n"
	case "SBR":
		return tab + "// SBR\n"
	case "RET":
		return tab + "// RET\n"
	case "END":
		return tab + "// END\n"
	case "CPS", "FLL":
		return fmt.Sprintf("%s%s(%s);\n", tab, name, strings.Join(p, ", "))
	default:
		return tab + "// " + errUnknown(c) + "\n"
	}
}

func arithmetic(c call, tab, op string) string {
	if len(c.Params) != 3 {
		return tab + errArityComment(c, 3) + "\n"
	}
	return fmt.Sprintf("%s%s := %s %s %s;\n", tab, c.Params[2], c.Params[0], op, c.Params[1])
}

func conversion(c call, tab, fn string) string {
	if len(c.Params) != 2 {
		return tab + errArityComment(c, 2) + "\n"
	}
	return fmt.Sprintf("%s%s := %s(%s);\n", tab, c.Params[1], fn, c.Params[0])
}

// timer renders TON/TOF/TONR per spec.md §4.3's PT/IN/ET/Q field model. TOF
// inverts the enable sense; TONR skips the ET/Q reset on disable (retentive).
func timer(c call, tab string, enabled bool) string {
	if len(c.Params) != 3 {
		return tab + errArityComment(c, 3) + "\n"
	}
	t, pre, acc := c.Params[0], c.Params[1], c.Params[2]
	name := strings.ToUpper(c.Name)
	switch name {
	case "TON":
		if enabled {
			return fmt.Sprintf("%[1]s%[2]s.PT := %[3]s;\n%[1]s%[2]s.IN := 1;\n%[1]s%[2]s.Q := %[2]s.ET >= %[2]s.PT;\n%[1]s%[4]s := %[2]s.ET;\n",
				tab, t, pre, acc)
		}
		return fmt.Sprintf("%[1]s%[2]s.IN := 0;\n%[1]s%[2]s.ET := 0;\n%[1]s%[2]s.Q := 0;\n%[1]s%[3]s := 0;\n",
			tab, t, acc)
	case "TOF":
		if !enabled {
			return fmt.Sprintf("%[1]s%[2]s.PT := %[3]s;\n%[1]s%[2]s.IN := 0;\n%[1]s%[2]s.Q := %[2]s.ET < %[2]s.PT;\n%[1]s%[4]s := %[2]s.ET;\n",
				tab, t, pre, acc)
		}
		return fmt.Sprintf("%[1]s%[2]s.IN := 1;\n%[1]s%[2]s.ET := 0;\n%[1]s%[2]s.Q := 1;\n%[1]s%[3]s := 0;\n",
			tab, t, acc)
	default: // TONR: retentive, never clears ET on disable.
		if enabled {
			return fmt.Sprintf("%[1]s%[2]s.PT := %[3]s;\n%[1]s%[2]s.IN := 1;\n%[1]s%[2]s.Q := %[2]s.ET >= %[2]s.PT;\n%[1]s%[4]s := %[2]s.ET;\n",
				tab, t, pre, acc)
		}
		return fmt.Sprintf("%[1]s%[2]s.IN := 0;\n%[1]s%[3]s := %[2]s.ET;\n", tab, t, acc)
	}
}

func counterUp(c call, tab string, enabled bool) string {
	if len(c.Params) != 3 {
		return tab + errArityComment(c, 3) + "\n"
	}
	cn, pre, rst := c.Params[0], c.Params[1], c.Params[2]
	cu := "0"
	if enabled {
		cu = "1"
	}
	return fmt.Sprintf("%[1]s%[2]s.PRE := %[3]s;\n%[1]s%[2]s.CU := %[4]s;\n%[1]s%[2]s.RES := %[5]s;\n%[1]sCTU(%[2]s);\n",
		tab, cn, pre, cu, rst)
}

func counterDown(c call, tab string, enabled bool) string {
	if len(c.Params) != 3 {
		return tab + errArityComment(c, 3) + "\n"
	}
	cn, pre, rst := c.Params[0], c.Params[1], c.Params[2]
	cd := "0"
	if enabled {
		cd = "1"
	}
	return fmt.Sprintf("%[1]s%[2]s.PRE := %[3]s;\n%[1]s%[2]s.CD := %[4]s;\n%[1]s%[2]s.RES := %[5]s;\n%[1]sCTD(%[2]s);\n",
		tab, cn, pre, cd, rst)
}

func counterUpDown(c call, tab string, enabled bool) string {
	if len(c.Params) != 4 {
		return tab + errArityComment(c, 4) + "\n"
	}
	cn, pre, up, down := c.Params[0], c.Params[1], c.Params[2], c.Params[3]
	if !enabled {
		up, down = "0", "0"
	}
	return fmt.Sprintf("%[1]s%[2]s.PRE := %[3]s;\n%[1]s%[2]s.CU := %[4]s;\n%[1]s%[2]s.CD := %[5]s;\n%[1]sCTUD(%[2]s);\n",
		tab, cn, pre, up, down)
}

func systemValueGet(c call, tab string) string {
	if len(c.Params) != 4 {
		return tab + errArityComment(c, 4) + "\n"
	}
	cls, inst, attr, dst := c.Params[0], c.Params[1], c.Params[2], c.Params[3]
	return fmt.Sprintf("%s%s := %s.%s.%s;\n", tab, dst, cls, inst, attr)
}

func systemValueSet(c call, tab string) string {
	if len(c.Params) != 4 {
		return tab + errArityComment(c, 4) + "\n"
	}
	cls, inst, attr, src := c.Params[0], c.Params[1], c.Params[2], c.Params[3]
	return fmt.Sprintf("%s%s.%s.%s := %s;\n", tab, cls, inst, attr, src)
}

func errArity(name string, want, got int) string {
	return fmt.Sprintf("// ERROR: %s requires %d parameter(s), got %d", name, want, got)
}

func errArityComment(c call, want int) string {
	return fmt.Sprintf("// ERROR: %s requires %d parameter(s), got %d: %s", c.Name, want, len(c.Params), c.Raw)
}

func errUnknown(c call) string {
	if c.Raw != "" {
		return "ERROR: Unknown mnemonic " + c.Raw
	}
	return "ERROR: Unknown mnemonic " + c.Name + "(" + strings.Join(c.Params, ",") + ")"
}
