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

import "testing"

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := newLexer(src)
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			t.Fatalf("lex %q: %v", src, err)
		}
		if tok.Kind == TokEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexerDigitAndAlphaRuns(t *testing.T) {
	toks := lexAll(t, "2A;")
	want := []struct {
		kind TokenKind
		text string
	}{
		{TokNumber, "2"},
		{TokIdent, "A"},
		{TokPunct, ";"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d: got {%v %q}, want {%v %q}", i, toks[i].Kind, toks[i].Text, w.kind, w.text)
		}
	}
}

func TestLexerSingleLetterBeforeSemicolon(t *testing.T) {
	toks := lexAll(t, "POP A;")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[1].Kind != TokIdent || toks[1].Text != "A" {
		t.Errorf("expected a single-letter ident %q, got %+v", "A", toks[1])
	}
}

func TestLexerComment(t *testing.T) {
	toks := lexAll(t, "NOP; / this is a comment\nHALT;")
	if len(toks) != 4 {
		t.Fatalf("got %d tokens, want 4: %+v", len(toks), toks)
	}
	if toks[3].Text != ";" || toks[2].Text != "HALT" {
		t.Errorf("comment not skipped correctly: %+v", toks)
	}
}

func TestLexerLineCounting(t *testing.T) {
	toks := lexAll(t, "NOP;\nNOP;\nHALT;")
	if toks[len(toks)-1].Line != 3 {
		t.Errorf("expected HALT's ';' on line 3, got %d", toks[len(toks)-1].Line)
	}
}

func TestLexerMalformedByte(t *testing.T) {
	l := newLexer("@;")
	if _, err := l.next(); err == nil {
		t.Fatal("expected an error for an unrecognized byte")
	}
}
