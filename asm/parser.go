// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package asm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// AsmError is a single diagnostic, anchored to the 1-based source line it
// came from.
type AsmError struct {
	Line int
	Msg  string
}

func (e AsmError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// ErrAsmList collects every diagnostic from a pass. The assembler is
// fail-continue within a pass, so a single source file can report more
// than one error at once.
type ErrAsmList []AsmError

func (e ErrAsmList) Error() string {
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Assemble runs both passes over source read from r and returns the
// resulting 256-byte ROM image. On any diagnostic, the returned error is
// an ErrAsmList and the image must be discarded: a failed pass one skips
// pass two, and a failed pass two never populates the image that callers
// should write out. name prefixes the two failures that happen before any
// statement is parsed: a read error from r, and a malformed byte found by
// the lexer (reported with Line 0; its message carries the line).
func Assemble(name string, r io.Reader) (rom [256]byte, err error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return rom, fmt.Errorf("%s: %w", name, err)
	}

	toks, err := tokenize(string(src))
	if err != nil {
		return rom, ErrAsmList{{Line: 0, Msg: fmt.Sprintf("%s: %s", name, err)}}
	}

	p := &parser{toks: toks, labels: map[string]byte{}}
	if errs := p.run(&countingSink{pc: &p.pc}, false); len(errs) > 0 {
		return rom, ErrAsmList(errs)
	}

	p.pos, p.pc = 0, 0
	if errs := p.run(&writingSink{rom: &rom, pc: &p.pc}, true); len(errs) > 0 {
		var cleared [256]byte
		return cleared, ErrAsmList(errs)
	}

	return rom, nil
}

func tokenize(src string) ([]Token, error) {
	l := newLexer(src)
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

// parser drives one pass at a time over a fixed token slice. Pass one and
// pass two are the exact same grammar walk; they differ only in the sink
// they emit to and in whether label definitions are recorded or just
// consulted (resolveLabels is true on pass two).
type parser struct {
	toks   []Token
	pos    int
	pc     int
	labels map[string]byte
	errs   []AsmError
}

func (p *parser) run(s sink, resolveLabels bool) []AsmError {
	p.errs = nil
	for {
		tok := p.peek()
		if tok.Kind == TokEOF {
			break
		}
		start := p.pos
		if err := p.statement(s, resolveLabels); err != nil {
			p.errs = append(p.errs, AsmError{Line: tok.Line, Msg: err.Error()})
			// An error raised after the statement's ';' was consumed (an
			// encoding error) needs no resync.
			if p.pos == start || p.toks[p.pos-1].Kind != TokPunct || p.toks[p.pos-1].Text != ";" {
				p.recover()
			}
		}
	}
	return p.errs
}

func (p *parser) peek() Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *parser) expectPunct(text string) error {
	tok := p.advance()
	if tok.Kind != TokPunct || tok.Text != text {
		return fmt.Errorf("expected %q, found %q", text, tok.Text)
	}
	return nil
}

// recover skips tokens up to and including the next ';', so a later
// statement on the same or a following line still gets a chance to report
// its own diagnostics.
func (p *parser) recover() {
	for {
		tok := p.advance()
		if tok.Kind == TokEOF || (tok.Kind == TokPunct && tok.Text == ";") {
			return
		}
	}
}

// statement parses and, on pass two, emits one label definition or one
// instruction.
func (p *parser) statement(s sink, resolveLabels bool) error {
	tok := p.peek()

	if tok.Kind == TokPunct && tok.Text == ":" {
		p.advance()
		name := p.advance()
		if name.Kind != TokIdent {
			return fmt.Errorf("expected label name after ':'")
		}
		if !resolveLabels {
			if _, dup := p.labels[name.Text]; dup {
				return fmt.Errorf("label %q redefined", name.Text)
			}
			p.labels[name.Text] = byte(p.pc)
		}
		return nil
	}

	if tok.Kind != TokIdent {
		return fmt.Errorf("expected mnemonic or label, found %q", tok.Text)
	}
	if _, ok := mnemonics[tok.Text]; !ok {
		return fmt.Errorf("unknown mnemonic %q", tok.Text)
	}
	mnemonic := p.advance().Text

	ops, err := p.operands(mnemonic, resolveLabels)
	if err != nil {
		return err
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	return encode(mnemonic, ops, s)
}

func (p *parser) operands(mnemonic string, resolveLabels bool) ([]operand, error) {
	switch mnemonic {
	case "MOV":
		r, err := p.readRegister()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
		n, err := p.readNumeral(resolveLabels)
		if err != nil {
			return nil, err
		}
		return []operand{r, n}, nil

	case "STR":
		r, err := p.readRegister()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
		n, err := p.readNumeral(resolveLabels)
		if err != nil {
			return nil, err
		}
		return []operand{r, n}, nil

	case "PUSH":
		if tok := p.peek(); tok.Kind == TokIdent {
			if _, ok := registerFromName(tok.Text); ok {
				r, err := p.readRegister()
				return []operand{r}, err
			}
		}
		n, err := p.readHexOnly(resolveLabels)
		if err != nil {
			return nil, err
		}
		return []operand{n}, nil

	case "POP":
		r, err := p.readRegister()
		if err != nil {
			return nil, err
		}
		return []operand{r}, nil

	case "SWP":
		r1, err := p.readRegister()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
		r2, err := p.readRegister()
		if err != nil {
			return nil, err
		}
		return []operand{r1, r2}, nil

	case "JMP", "JEZ", "JNZ", "CALL":
		n, err := p.readNumeral(resolveLabels)
		if err != nil {
			return nil, err
		}
		return []operand{n}, nil

	case "ADD", "SUB", "AND", "OR", "XOR":
		if tok := p.peek(); tok.Kind == TokIdent {
			if _, ok := registerFromName(tok.Text); ok {
				r, err := p.readRegister()
				return []operand{r}, err
			}
		}
		n, err := p.readNumeral(resolveLabels)
		if err != nil {
			return nil, err
		}
		return []operand{n}, nil

	case "RET", "OUT", "NOT", "INC", "DEC", "NOP", "HALT":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown mnemonic %q", mnemonic)
}

func (p *parser) readRegister() (operand, error) {
	tok := p.advance()
	reg, ok := registerFromName(tok.Text)
	if tok.Kind != TokIdent || !ok {
		return operand{}, fmt.Errorf("expected register name, found %q", tok.Text)
	}
	return operand{kind: operandRegister, register: reg, line: tok.Line}, nil
}

// readNumeral parses any of $addr, #imm, %bin, bare decimal or a bare
// label reference. It resolves label references to a concrete byte only
// when resolveLabels is true (pass two); on pass one it records nothing
// and returns a zero value placeholder, since the size of a label-taking
// instruction never depends on the label's resolved address.
func (p *parser) readNumeral(resolveLabels bool) (operand, error) {
	tok := p.peek()

	switch {
	case tok.Kind == TokPunct && tok.Text == "$":
		p.advance()
		text, line, err := p.glueLiteral()
		if err != nil {
			return operand{}, err
		}
		v, err := parseByte(text, 16)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: operandHexAddr, value: v, line: line}, nil

	case tok.Kind == TokPunct && tok.Text == "#":
		p.advance()
		text, line, err := p.glueLiteral()
		if err != nil {
			return operand{}, err
		}
		v, err := parseByte(text, 16)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: operandHexImm, value: v, line: line}, nil

	case tok.Kind == TokPunct && tok.Text == "%":
		p.advance()
		text, line, err := p.glueLiteral()
		if err != nil {
			return operand{}, err
		}
		v, err := parseByte(text, 2)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: operandBinImm, value: v, line: line}, nil

	case tok.Kind == TokNumber:
		text, line, err := p.glueLiteral()
		if err != nil {
			return operand{}, err
		}
		v, err := parseByte(text, 10)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: operandDecImm, value: v, line: line}, nil

	case tok.Kind == TokIdent:
		p.advance()
		op := operand{kind: operandLabelRef, label: tok.Text, line: tok.Line}
		if resolveLabels {
			addr, ok := p.labels[tok.Text]
			if !ok {
				return operand{}, fmt.Errorf("undefined label %q", tok.Text)
			}
			op.value = addr
		}
		return op, nil
	}

	return operand{}, fmt.Errorf("expected an address, immediate or label, found %q", tok.Text)
}

// readHexOnly implements PUSH's restricted operand grammar: a hexadecimal
// immediate only. Bare decimal digits and $addr are rejected here (see the
// resolved open questions in the design notes).
func (p *parser) readHexOnly(resolveLabels bool) (operand, error) {
	tok := p.peek()
	if tok.Kind != TokPunct || tok.Text != "#" {
		return operand{}, fmt.Errorf("PUSH requires a register or a #imm operand")
	}
	return p.readNumeral(resolveLabels)
}

// glueLiteral concatenates a maximal run of adjacent (no whitespace between)
// TokNumber/TokIdent tokens into one literal string. This is what lets a
// hexadecimal literal like "2A" -- which the lexer necessarily splits into
// a digit run and a letter run, since it only recognises pure-digit and
// pure-alphabetic runs -- be read back as a single number by the parser.
func (p *parser) glueLiteral() (string, int, error) {
	tok := p.peek()
	if tok.Kind != TokNumber && tok.Kind != TokIdent {
		return "", 0, fmt.Errorf("expected a numeral, found %q", tok.Text)
	}
	p.advance()
	text := tok.Text
	line := tok.Line
	last := tok
	for {
		next := p.peek()
		if (next.Kind != TokNumber && next.Kind != TokIdent) || !next.adjacentTo(last) {
			break
		}
		text += next.Text
		last = next
		p.advance()
	}
	return text, line, nil
}

func parseByte(text string, base int) (byte, error) {
	v, err := strconv.ParseUint(text, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid literal %q: %w", text, err)
	}
	if v > 0xFF {
		return 0, fmt.Errorf("literal %q out of byte range", text)
	}
	return byte(v), nil
}
