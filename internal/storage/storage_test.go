package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cued/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %T, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileJournalAppend(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	recs := []DispatchRecord{
		{At: time.Now(), Subject: "topic/a", Origin: "a.txt", Bytes: 5, OK: true},
		{At: time.Now(), Subject: "topic/b", Origin: "b.txt", Bytes: 9, OK: false, Error: "nats: connection closed"},
	}
	for _, r := range recs {
		if err := st.AppendDispatch(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []DispatchRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r DispatchRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad journal line %q: %v", sc.Text(), err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("journal has %d records, want 2", len(got))
	}
	if got[0].Subject != "topic/a" || !got[0].OK {
		t.Fatalf("first record wrong: %+v", got[0])
	}
	if got[1].Error == "" {
		t.Fatal("failure record lost its error")
	}
}

func TestSQLiteJournalAppend(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	r := DispatchRecord{
		At:      time.Now(),
		Subject: "topic/a",
		Origin:  "a.txt",
		Seq:     3,
		Due:     time.Now().Add(-time.Second),
		Bytes:   5,
		OK:      true,
	}
	if err := st.AppendDispatch(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendDispatch(context.Background(), DispatchRecord{Subject: "x", Origin: "y"}); err != nil {
		t.Fatal(err)
	}
}
