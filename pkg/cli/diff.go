// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysdiff/pkg/diff"
	"github.com/NVIDIA/sysdiff/pkg/errors"
)

func diffOptions(cmd *cli.Command) []diff.Option {
	if cmd.Bool("numeric-delta") {
		return []diff.Option{diff.WithTokenDiff(diff.DeltaTokens)}
	}
	return nil
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() != n {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("expected %d arguments", n),
			map[string]any{"usage": cmd.Name + " " + cmd.ArgsUsage})
	}
	return nil
}

func diffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Diff two host-side capture trees",
		ArgsUsage: "<before-dir> <after-dir> <diff-dir>",
		Description: `Diff every regular file under before-dir against the file with the same
relative path under after-dir and write the token diffs under diff-dir.
Use it to re-render the diff of an earlier capture, for example with
--numeric-delta.`,
		Flags: []cli.Flag{
			numericDeltaFlag(),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 3); err != nil {
				return err
			}
			before, after, out := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
			if err := diff.Tree(before, after, out, diffOptions(cmd)...); err != nil {
				return fmt.Errorf("failed to diff %s and %s: %w", before, after, err)
			}
			slog.Info("tree diff written", "diff_dir", out)
			return nil
		},
	}
}

func diffTableCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff-table",
		Usage:     "Diff two counter tables such as /proc/interrupts",
		ArgsUsage: "<before-file> <after-file>",
		Flags: []cli.Flag{
			numericDeltaFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the rendered table to this file instead of stdout",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			before, after := cmd.Args().Get(0), cmd.Args().Get(1)
			if out := cmd.String("output"); out != "" {
				return diff.WriteTableFile(before, after, out, diffOptions(cmd)...)
			}

			rows, err := diff.TableFiles(before, after, diffOptions(cmd)...)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			return diff.RenderTable(w, rows)
		},
	}
}
