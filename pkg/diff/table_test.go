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

package diff

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_InsertedRow(t *testing.T) {
	before := "A 1\nB 2\n"
	after := "A 1\nX 9\nB 3\n"

	rows, err := Table(strings.NewReader(before), strings.NewReader(after))
	require.NoError(t, err)

	want := []Row{
		{"", "", "A", "1"},
		{">", "X", "9"},
		{"", "B", "[2 -> 3]"},
	}
	assert.Equal(t, want, rows)
}

func TestTable_Interrupts(t *testing.T) {
	before := strings.Join([]string{
		"           CPU0       CPU1",
		"  0:         44          0   IO-APIC   2-edge      timer",
		"  1:          9          0   IO-APIC   1-edge      i8042",
		"NMI:          0          0   Non-maskable interrupts",
		"",
	}, "\n")
	after := strings.Join([]string{
		"           CPU0       CPU1",
		"  0:         44          0   IO-APIC   2-edge      timer",
		"  1:         12          3   IO-APIC   1-edge      i8042",
		" 24:          1          0   PCI-MSI 65536-edge    nvme0q0",
		"NMI:          0          0   Non-maskable interrupts",
		"",
	}, "\n")

	rows, err := Table(strings.NewReader(before), strings.NewReader(after))
	require.NoError(t, err)

	want := []Row{
		{"", "", "CPU0", "CPU1"},
		{"", "0:", "44", "0", "IO-APIC 2-edge timer"},
		{"", "1:", "[9 -> 12]", "[0 -> 3]", "IO-APIC 1-edge i8042"},
		{">", "24:", "1", "0", "PCI-MSI 65536-edge nvme0q0"},
		{"", "NMI:", "0", "0", "Non-maskable interrupts"},
	}
	assert.Equal(t, want, rows)
}

func TestTable_AfterExhaustedDropsRemainingRows(t *testing.T) {
	logs := captureLogs(t)
	before := "H x\nA 1\nB 2\nC 3\n"
	after := "H x\nA 1\nZ 4\n"

	rows, err := Table(strings.NewReader(before), strings.NewReader(after))
	require.NoError(t, err)

	want := []Row{
		{"", "", "H", "x"},
		{"", "A", "1"},
		{">", "Z", "4"},
	}
	assert.Equal(t, want, rows)
	assert.Contains(t, logs.String(), "dropped")
	assert.Contains(t, logs.String(), "count=2")
}

func TestTable_BlankLinesIgnored(t *testing.T) {
	rows, err := Table(strings.NewReader("A 1\n\n\nB 2\n"), strings.NewReader("\nA 1\nB 2\n\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestTable_Empty(t *testing.T) {
	rows, err := Table(strings.NewReader(""), strings.NewReader("A 1\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTable_Delta(t *testing.T) {
	rows, err := Table(strings.NewReader("K v\nA 10\n"), strings.NewReader("K v\nA 25\n"),
		WithTokenDiff(DeltaTokens))
	require.NoError(t, err)
	assert.Equal(t, Row{"", "A", "15"}, rows[1])
}

func TestRenderTable(t *testing.T) {
	rows := []Row{
		{"", "", "CPU0", "CPU1"},
		{"", "0:", "[9 -> 12]", "0"},
		{">", "24:", "1", "0"},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, rows))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(strings.TrimRight(lines[0], " "), "CPU0 CPU1"), lines[0])
	assert.Contains(t, lines[1], "[9 -> 12]")
	assert.True(t, strings.HasPrefix(strings.TrimLeft(lines[2], " "), ">"), lines[2])

	// right alignment puts every value column at the same end offset
	end := func(line, field string) int { return strings.Index(line, field) + len(field) }
	assert.Equal(t, end(lines[0], "CPU0"), end(lines[1], "[9 -> 12]"))
	assert.Equal(t, end(lines[1], "[9 -> 12]"), end(lines[2], " 1"))
}

func TestWriteTableFile(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "before", "proc", "interrupts")
	a := filepath.Join(dir, "after", "proc", "interrupts")
	writeFile(t, b, "CPU0\n0: 1 timer\n")
	writeFile(t, a, "CPU0\n0: 4 timer\n")

	dest := filepath.Join(dir, "diff", "proc", "interrupts")
	require.NoError(t, WriteTableFile(b, a, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(got), "[1 -> 4]")
	assert.Contains(t, string(got), "timer")
}

func TestTableFiles_Missing(t *testing.T) {
	dir := t.TempDir()
	_, err := TableFiles(filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	assert.Error(t, err)
}
