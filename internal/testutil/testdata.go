// Package testutil locates shared test fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bazelbuild/rules_go/go/tools/bazel"
)

// TestdataPath returns the path of a file under the module's testdata
// directory. In Bazel tests it resolves the file through runfiles; outside of
// Bazel it walks up from the working directory to the module root.
func TestdataPath(name string) (string, error) {
	rel := filepath.Join("testdata", name)
	if p, err := bazel.Runfile(rel); err == nil {
		return p, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, rel), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("testdata %s not found", name)
}
