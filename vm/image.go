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

package vm

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// LoadROM reads a 256-byte program image from r. A short read is zero
// padded out to the full address space; a read that turns up more than
// 256 bytes is a load error, since the machine has nowhere to put the
// remainder.
func LoadROM(r io.Reader) (rom [256]byte, err error) {
	if _, err := io.ReadFull(r, rom[:]); err != nil && err != io.ErrUnexpectedEOF {
		return rom, errors.Wrap(err, "load ROM")
	}

	var overflow [1]byte
	if n, _ := r.Read(overflow[:]); n > 0 {
		return [256]byte{}, fmt.Errorf("program image exceeds 256 bytes")
	}
	return rom, nil
}

// DumpFormat selects how DumpROM renders each byte.
type DumpFormat int

const (
	// DumpHex prints each byte as two hex digits.
	DumpHex DumpFormat = iota
	// DumpDecimal prints each byte as its decimal value.
	DumpDecimal
)

// DumpROM writes a 16-bytes-per-row listing of rom to w, in the given
// format. It prints raw bytes, not disassembled mnemonics. Neither the asm
// nor the vm command calls it: their --debug output comes from spew.
func DumpROM(w io.Writer, rom [256]byte, f DumpFormat) {
	for row := 0; row < 16; row++ {
		fmt.Fprintf(w, "%02X:", row*16)
		for col := 0; col < 16; col++ {
			b := rom[row*16+col]
			switch f {
			case DumpDecimal:
				fmt.Fprintf(w, " %3d", b)
			default:
				fmt.Fprintf(w, " %02X", b)
			}
		}
		fmt.Fprintln(w)
	}
}
