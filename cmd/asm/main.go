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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/aeilers/octo8/asm"
)

func main() {
	app := &cli.App{
		Name:      "asm",
		Usage:     "assemble octo8 source into a 256-byte ROM image",
		ArgsUsage: "<source.asm>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "dump the assembled ROM image instead of just writing it"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "asm: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	srcName := c.Args().First()
	if srcName == "" {
		return cli.Exit("missing source file argument", 1)
	}
	if !strings.HasSuffix(srcName, ".asm") {
		return cli.Exit(fmt.Sprintf("%s: source file must have a .asm extension", srcName), 1)
	}

	f, err := os.Open(srcName)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "asm"), 1)
	}
	defer f.Close()

	rom, err := asm.Assemble(srcName, f)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("debug") {
		spew.Fdump(os.Stdout, rom)
		return nil
	}

	outName := strings.TrimSuffix(srcName, ".asm") + ".bin"
	if err := os.WriteFile(outName, rom[:], 0o644); err != nil {
		return cli.Exit(errors.Wrap(err, "asm"), 1)
	}
	return nil
}
