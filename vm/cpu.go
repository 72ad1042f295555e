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
	"context"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

const (
	flagCarry byte = 1 << 0
	flagZero  byte = 1 << 1
)

// CPU is the full state of one machine: its register file, its two
// 256-byte memories, the condition flags, and the control store built once
// at construction and never mutated after.
type CPU struct {
	PC, SP       byte
	A, B, C, D   byte
	MAR, MDR, IR byte
	BUS, ALU     byte
	Flags        byte

	ROM [256]byte
	RAM [256]byte

	store *controlStore
	step  int
	halt  bool

	out   *outputPort
	Steps int64
}

// NewCPU constructs a CPU with rom loaded read-only and out as the target
// of the OUT instruction's side effect. SP starts at 0x80: the stack
// occupies the upper half of RAM, per the resolved "where does SP start"
// open question.
func NewCPU(rom [256]byte, out io.Writer) *CPU {
	return &CPU{
		SP:    0x80,
		ROM:   rom,
		store: buildControlStore(),
		out:   newOutputPort(out),
	}
}

// Step executes one micro-step and returns false once HALT has been
// decoded. It never itself recovers from panics; Run is the entry point
// that wraps execution with diagnostics.
func (c *CPU) Step() bool {
	if c.halt {
		return false
	}

	switch c.step {
	case 0:
		c.MAR = c.PC
	case 1:
		c.IR = c.ROM[c.MAR]
		c.PC++
		if c.IR == opHalt {
			c.halt = true
			c.step = 0
			return false
		}
	default:
		w := c.store.fetch(c.Flags, c.step, c.IR)
		c.applyWord(w)
	}

	c.Steps++
	c.step++
	if c.step > 7 {
		c.step = 0
	}
	return true
}

// Run steps the CPU to completion or until ctx is cancelled, recovering
// any panic raised by a malformed control word and turning it into an
// annotated error -- the same shape as the teacher's Instance.Run, which
// wraps a recovered panic with register-file context via
// github.com/pkg/errors.
func (c *CPU) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errorFromRecover(r),
				"recovered error @pc=%d ir=%#02x A=%#02x B=%#02x C=%#02x D=%#02x SP=%#02x",
				c.PC, c.IR, c.A, c.B, c.C, c.D, c.SP)
		}
	}()

	for c.Step() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if c.out.Err != nil {
		return errors.Wrap(c.out.Err, "output")
	}
	return nil
}

// State is a snapshot of the CPU's visible registers and memories, meant
// for debug dumps -- unlike CPU itself it carries no pointer to the
// control store, so spew.Dump doesn't walk 8192 unexported entries to
// report four register bytes.
type State struct {
	PC, SP, A, B, C, D, MAR, MDR, IR, BUS, ALU, Flags byte
	Halted                                            bool
	Steps                                             int64
	OutputLines                                       int64
	RAM                                               [256]byte
}

// Dump returns a snapshot of the CPU's current state.
func (c *CPU) Dump() State {
	return State{
		PC: c.PC, SP: c.SP, A: c.A, B: c.B, C: c.C, D: c.D,
		MAR: c.MAR, MDR: c.MDR, IR: c.IR, BUS: c.BUS, ALU: c.ALU, Flags: c.Flags,
		Halted: c.halt, Steps: c.Steps, OutputLines: c.out.Lines, RAM: c.RAM,
	}
}

func errorFromRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.Errorf("%v", r)
}

// applyWord decodes one control word and applies its datapath effect. Any
// combination not recognised here is a silent no-op, per the control
// word's own design note.
func (c *CPU) applyWord(w ctrlWord) {
	if w == 0 {
		return
	}

	// The two INC/DEC sentinels are recognised ahead of the generic ALU
	// path, since they pair the ALU out-selector with an aux code that
	// otherwise never accompanies it.
	switch w {
	case microIncA:
		c.A, _, _ = addSub(c.A, 1, false)
		c.updateFlags(c.A, false)
		return
	case microDecA:
		c.A, _, _ = addSub(c.A, 1, true)
		c.updateFlags(c.A, false)
		return
	}

	bus, carry, isALU := c.drive(w)
	c.BUS = bus

	c.latch(w, bus)

	if isALU {
		c.updateFlags(bus, carry)
	}

	// The RAM write must see SP before this step's own SP delta is applied,
	// symmetric with ramRead (called from drive, above) already reading
	// RAM[SP-1] pre-decrement: a push writes to the slot SP pointed at on
	// entry and only then advances SP, exactly mirroring how a pop backs SP
	// up before reading the slot it now points at.
	if w&bitRAMIn != 0 {
		c.ramWrite(w, bus)
	}

	switch w.aux() {
	case auxSPInc:
		c.SP++
	case auxSPDec:
		c.SP--
	case auxPCInc:
		c.PC++
	}

	if c.IR == opOut {
		c.printOut()
	}
}

// drive computes the value the bus carries this step, and whether that
// value came from the ALU (so the caller knows to update flags).
func (c *CPU) drive(w ctrlWord) (bus byte, carry bool, isALU bool) {
	if w&bitDOut != 0 {
		return c.D, false, false
	}
	if w&bitCOut != 0 {
		return c.C, false, false
	}
	switch w.out() {
	case outALU:
		return c.aluResult(w)
	case outA:
		return c.A, false, false
	case outB:
		return c.B, false, false
	case outMDR:
		return c.MDR, false, false
	case outRAM:
		return c.ramRead(w), false, false
	case outROM:
		return c.ROM[c.MAR], false, false
	case outPC:
		return c.PC, false, false
	}
	return 0, false, false
}

func (c *CPU) aluResult(w ctrlWord) (result byte, carry bool, isALU bool) {
	switch {
	case w&bitXOROut != 0:
		return c.A ^ c.B, false, true
	case w.aux() == auxSub:
		sum, cy, _ := addSub(c.A, c.B, true)
		return sum, cy, true
	case w.aux() == auxAndOut:
		return c.A & c.B, false, true
	case w.aux() == auxOrOut:
		return c.A | c.B, false, true
	case w.aux() == auxNotOut:
		return ^c.A, false, true
	default:
		sum, cy, _ := addSub(c.A, c.B, false)
		return sum, cy, true
	}
}

// latch stores bus onto whichever in-selector (or D_IN) is active.
func (c *CPU) latch(w ctrlWord, bus byte) {
	if w&bitDIn != 0 {
		c.D = bus
		return
	}
	switch w.in() {
	case inA:
		c.A = bus
	case inB:
		c.B = bus
	case inC:
		c.C = bus
	case inIR:
		c.IR = bus
	case inMDR:
		c.MDR = bus
	case inMAR:
		c.MAR = bus
	case inPC:
		c.PC = bus
	}
}

// ramRead/ramWrite address RAM by SP when an SP aux code is present
// (stack access), or by MAR otherwise (direct addressing).
func (c *CPU) ramRead(w ctrlWord) byte {
	if w.aux() == auxSPDec {
		return c.RAM[c.SP-1]
	}
	return c.RAM[c.MAR]
}

func (c *CPU) ramWrite(w ctrlWord, bus byte) {
	if w.aux() == auxSPInc {
		c.RAM[c.SP] = bus
		return
	}
	c.RAM[c.MAR] = bus
}

func (c *CPU) updateFlags(result byte, carry bool) {
	c.Flags = 0
	if carry {
		c.Flags |= flagCarry
	}
	if result == 0 {
		c.Flags |= flagZero
	}
}

func (c *CPU) printOut() {
	_, _ = c.out.Write([]byte(strconv.Itoa(int(c.C)) + "\n"))
}
