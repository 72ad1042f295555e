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
	"io"

	"github.com/pkg/errors"
)

// outputPort wraps the OUT instruction's target writer. It latches the
// first write error, so applyWord's printOut doesn't need an error check on
// every instruction, and it counts completed lines: spec.md's testable
// property that every OUT produces exactly one line of output is otherwise
// unobservable from outside the CPU once output is a plain io.Writer.
type outputPort struct {
	w     io.Writer
	Err   error
	Lines int64
}

func newOutputPort(w io.Writer) *outputPort {
	return &outputPort{w: w}
}

func (o *outputPort) Write(p []byte) (n int, err error) {
	if o.Err != nil {
		return 0, o.Err
	}
	n, err = o.w.Write(p)
	if err != nil {
		o.Err = errors.Wrap(err, "write failed")
		return n, o.Err
	}
	o.Lines++
	return n, nil
}
