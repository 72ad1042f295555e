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

package asm_test

import (
	"strings"
	"testing"

	"github.com/aeilers/octo8/asm"
)

// asmBytes assembles src and fails the test on any diagnostic, returning
// only the bytes up to the last non-zero one for easy comparison.
func asmBytes(t *testing.T, src string) []byte {
	t.Helper()
	rom, err := asm.Assemble("test.asm", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble(%q): %v", src, err)
	}
	return rom[:]
}

func TestEncodingLaws(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []byte
	}{
		{"halt", "HALT;", []byte{0xFF}},
		{"mov imm", "MOV A, #05;", []byte{0x00 | 0x04, 0x05}},
		{"swp same reg is nop", "SWP A, A;", []byte{0xF0}},
		{"mov addr", "MOV B, $10;", []byte{0x00 | 0x01, 0x10}},
		{"mov bin", "MOV C, %101;", []byte{0x00 | 0x02 | 0x08, 0x05}},
		{"mov dec", "MOV D, 9;", []byte{0x00 | 0x03 | 0x0C, 0x09}},
		{"str", "STR A, $20;", []byte{0x10, 0x20}},
		{"push reg", "PUSH B;", []byte{0x21}},
		{"push imm", "PUSH #2A;", []byte{0x24, 0x2A}},
		{"pop", "POP C;", []byte{0x32}},
		{"add reg", "ADD B;", []byte{0xB1}},
		{"add imm", "ADD #03;", []byte{0xB8, 0x03}},
		{"not", "NOT;", []byte{0xE4}},
		{"inc", "INC;", []byte{0xA2}},
		{"dec", "DEC;", []byte{0xA1}},
		{"nop", "NOP;", []byte{0xF0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := asmBytes(t, c.src)[:len(c.want)]
			for i, b := range c.want {
				if got[i] != b {
					t.Errorf("byte %d: want %#02x, got %#02x", i, b, got[i])
				}
			}
		})
	}
}

func TestLabelReferenceIsInstructionOffset(t *testing.T) {
	src := ": start OUT; JMP start; HALT;"
	rom := asmBytes(t, src)
	// OUT is one byte at offset 0, so "start" must resolve to 0.
	if rom[0] != 0xA0 {
		t.Fatalf("expected OUT at offset 0, got %#02x", rom[0])
	}
	if rom[1] != 0x50 || rom[2] != 0x00 {
		t.Fatalf("expected JMP 0x00, got %#02x %#02x", rom[1], rom[2])
	}
}

func TestStrRejectsImmediate(t *testing.T) {
	_, err := asm.Assemble("t.asm", strings.NewReader("STR A, #05;"))
	if err == nil {
		t.Fatal("expected STR with #imm to be rejected")
	}
}

func TestPushRejectsDecimal(t *testing.T) {
	_, err := asm.Assemble("t.asm", strings.NewReader("PUSH 42;"))
	if err == nil {
		t.Fatal("expected PUSH with a bare decimal operand to be rejected")
	}
}

func TestOverflow(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("NOP;")
	}
	_, err := asm.Assemble("t.asm", strings.NewReader(b.String()))
	if err == nil {
		t.Fatal("expected overflow error for a program exceeding 256 bytes")
	}
}
