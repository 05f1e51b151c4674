package vm_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/lox/config"
	"github.com/mna/lox/internal/filetest"
	"github.com/mna/lox/vm"
)

var testUpdateGoldenTests = flag.Bool("test.update-vm-tests", false, "If set, replace expected VM golden test results with actual results.")

// TestGolden runs every script under testdata/in against a fresh VM and
// diffs its stdout/stderr against the matching file in testdata/out.
func TestGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".lox") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			var stdout, stderr bytes.Buffer
			m := vm.New(config.Default())
			m.Stdout = &stdout
			m.Stderr = &stderr
			m.Interpret(string(src))

			filetest.DiffOutput(t, fi, stdout.String(), resultDir, testUpdateGoldenTests)
			filetest.DiffErrors(t, fi, stderr.String(), resultDir, testUpdateGoldenTests)
		})
	}
}
