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
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/aeilers/octo8/vm"
)

func main() {
	app := &cli.App{
		Name:      "vm",
		Usage:     "run an octo8 program image",
		ArgsUsage: "<program.bin>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "dump final register and memory state on exit"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "vm: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	imgName := c.Args().First()
	if imgName == "" {
		return cli.Exit("missing program image argument", 1)
	}

	f, err := os.Open(imgName)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "vm"), 1)
	}
	defer f.Close()

	rom, err := vm.LoadROM(f)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "vm"), 1)
	}

	cpu := vm.NewCPU(rom, os.Stdout)
	runErr := cpu.Run(context.Background())

	if c.Bool("debug") {
		spew.Fdump(os.Stderr, cpu.Dump())
	}

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("%+v", runErr), 1)
	}
	return nil
}
