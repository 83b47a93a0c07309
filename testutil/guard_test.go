package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDriverImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"modernc.org/sqlite", true},
		{"github.com/prometheus/client_golang/prometheus", true},
		{"golang.org/x/text/language", false},
		{"pluginkit/pkg/geo", false},
		{"", false},
	}
	for _, c := range cases {
		if got := DriverImportForbidden(c.in); got != c.want {
			t.Fatalf("DriverImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"pluginkit/internal/logging", true},
		{"example.com/some/internal/deep/path", true},
		{"example.com/internal", false},
		{"internal", false},
		{"notinternal", false},
		{"pluginkit/pkg/plugin", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImports(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "b.go", "package tmp\nimport (\n\t\"os\"\n\talias \"context\"\n)\nvar _ = os.Args\nvar _ alias.Context\n")
	writeGo(t, dir, "a.go", "package tmp\nimport \"os\"\n")
	writeGo(t, dir, "a_test.go", "package tmp\nimport \"forbidden/pkg\"\n")
	writeGo(t, dir, "notes.txt", "import \"x\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeGo(t, filepath.Join(dir, "sub"), "s.go", "package sub\nimport \"forbidden/pkg\"\n")

	got, err := DirectImports(dir)
	if err != nil {
		t.Fatalf("DirectImports: %v", err)
	}
	want := []Import{{"context", "b.go"}, {"os", "a.go"}, {"os", "b.go"}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("DirectImports = %v, want %v", got, want)
	}

	AssertNoDirectImports(t, dir, func(p string) bool { return p == "forbidden/pkg" }, "tests and subdirs ignored")
}

func TestDirectImportsMissingDir(t *testing.T) {
	if _, err := DirectImports(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFailIfViolations(t *testing.T) {
	r := &recorder{}
	failIfViolations(r, "forbidden direct imports detected", "no drivers", nil)
	if r.msg != "" {
		t.Fatalf("unexpected failure: %s", r.msg)
	}
	failIfViolations(r, "forbidden direct imports detected", "no drivers", []string{"modernc.org/sqlite (in x.go)"})
	if !strings.Contains(r.msg, "no drivers") || !strings.Contains(r.msg, "modernc.org/sqlite") {
		t.Fatalf("message = %q", r.msg)
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	prev := goListDeps
	t.Cleanup(func() { goListDeps = prev })

	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\npluginkit/pkg/geo\n\ngithub.com/aws/aws-sdk-go-v2/service/s3\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", DriverImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "github.com/aws/aws-sdk-go-v2/service/s3" {
		t.Fatalf("viols=%v err=%v", viols, err)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations(".", DriverImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list error, got %v %q", err, out)
	}
}
