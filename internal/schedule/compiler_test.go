package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cued/internal/script"
	"cued/pkg/logx"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testCompiler() *Compiler {
	c := NewCompiler(script.DefaultDelimiter, logx.Nop())
	c.Now = func() time.Time { return t0 }
	return c
}

func TestCompileDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "2030-01-01T00:00:00Z|topic/a|hello\n+10s|topic/a|world\n")
	writeFile(t, dir, "b.txt", "2030-01-01T00:00:05Z|topic/b|mid\n")
	writeFile(t, dir, "notes.md", "not a script\n")

	sched := New()
	errs := testCompiler().CompileDir(dir, sched)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if sched.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (md file ignored)", sched.Len())
	}

	first := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got := sched.PopDue(first.Add(time.Minute))
	if !got[0].Due.Equal(first) {
		t.Fatalf("first due = %v, want %v", got[0].Due, first)
	}
	// Second entry of a.txt is exactly 10s after the first.
	if got[1].Topic != "topic/b" || got[2].Topic != "topic/a" {
		t.Fatalf("merge order wrong: %s, %s", got[1].Topic, got[2].Topic)
	}
	if want := first.Add(10 * time.Second); !got[2].Due.Equal(want) {
		t.Fatalf("chained due = %v, want %v", got[2].Due, want)
	}
}

func TestCompileDirPartialFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "+1s|topic/ok|fine\n")
	writeFile(t, dir, "bad.txt", "+1s|only-two-fields\n")

	sched := New()
	errs := testCompiler().CompileDir(dir, sched)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if !errors.Is(errs[0], script.ErrMalformedLine) {
		t.Fatalf("err = %v, want ErrMalformedLine", errs[0])
	}
	// The bad file contributes nothing; the good one is untouched.
	if sched.Len() != 1 {
		t.Fatalf("Len = %d, want 1", sched.Len())
	}
	if sched.Has(FragmentID(filepath.Join(dir, "bad.txt"))) {
		t.Fatal("rejected fragment should not be registered")
	}
}

func TestCompileFileMissing(t *testing.T) {
	t.Parallel()
	_, _, err := testCompiler().CompileFile(filepath.Join(t.TempDir(), "gone.txt"))
	if !errors.Is(err, script.ErrRead) {
		t.Fatalf("err = %v, want ErrRead", err)
	}
}

func TestCompileFileReparseIdentical(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "+5s|topic/a|one\n+5s|topic/a|two\n")

	c := testCompiler()
	first, _, err := c.CompileFile(path)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := c.CompileFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Due.Equal(second[i].Due) || first[i].Seq != second[i].Seq {
			t.Fatalf("entry %d differs on re-parse: %+v vs %+v", i, first[i], second[i])
		}
	}
}
