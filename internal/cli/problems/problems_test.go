package problems_test

import (
	"os"
	"path/filepath"
	"testing"

	"ojcli/internal/cli/problems"
)

const catalogYAML = `
languages:
  - id: python
    displayName: Python 3.11
    editorTag: python
  - id: java
    displayName: Java 17
    editorTag: java
problems:
  - id: two-sum
    title: Two Sum
    difficulty: easy
    timeLimitMs: 2000
    memoryKB: 262144
    testCases:
      - id: tc1
        input: "1 2"
        expectedOutput: "3"
      - id: tc2
        input: "5 5"
        expectedOutput: "10"
        isHidden: true
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problems.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog failed: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()
	cat, err := problems.Load(writeCatalog(t, catalogYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	p, ok := cat.Problem("two-sum")
	if !ok {
		t.Fatalf("problem lookup failed")
	}
	if len(p.VisibleTestCases()) != 1 || len(p.HiddenTestCases()) != 1 {
		t.Fatalf("test case split wrong: %+v", p.TestCases)
	}
	if lang, ok := cat.Language("java"); !ok || lang.DisplayName != "Java 17" {
		t.Fatalf("language lookup wrong: %+v ok=%v", lang, ok)
	}
	if _, ok := cat.Language("rust"); ok {
		t.Fatalf("unknown language should miss")
	}
}

func TestLoadRejectsDuplicateTestCaseIDs(t *testing.T) {
	t.Parallel()
	const bad = `
problems:
  - id: p1
    testCases:
      - id: a
      - id: a
`
	if _, err := problems.Load(writeCatalog(t, bad)); err == nil {
		t.Fatalf("expected duplicate test case id to be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := problems.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
