package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func withStdin(t *testing.T, data []byte, fn func()) {
	t.Helper()
	old := os.Stdin
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdin = r

	go func() {
		w.Write(data)
		w.Close()
	}()

	fn()
	os.Stdin = old
}

func TestCmdPutGetRoundTrip(t *testing.T) {
	db := testDB(t)

	code := cmdPut([]string{"--db", db, "k", "v"})
	if code != 0 {
		t.Fatalf("put: exit code %d, want 0", code)
	}

	var out string
	code2 := 0
	out = captureStdout(t, func() { code2 = cmdGet([]string{"--db", db, "k"}) })
	if code2 != 0 {
		t.Fatalf("get: exit code %d, want 0", code2)
	}
	if strings.TrimSpace(out) != "v" {
		t.Fatalf("get: got %q, want %q", out, "v")
	}
}

func TestCmdGetMissingKeyExitsTwo(t *testing.T) {
	db := testDB(t)
	code := cmdGet([]string{"--db", db, "missing"})
	if code != 2 {
		t.Fatalf("get on missing key: exit code %d, want 2", code)
	}
}

func TestCmdListShowsEveryEntry(t *testing.T) {
	db := testDB(t)
	if code := cmdPut([]string{"--db", db, "a", "1"}); code != 0 {
		t.Fatalf("put a: exit code %d", code)
	}
	if code := cmdPut([]string{"--db", db, "b", "2"}); code != 0 {
		t.Fatalf("put b: exit code %d", code)
	}

	out := captureStdout(t, func() {
		if code := cmdList([]string{"--db", db}); code != 0 {
			t.Fatalf("list: exit code %d", code)
		}
	})
	if !strings.Contains(out, "a\t1") || !strings.Contains(out, "b\t2") {
		t.Fatalf("list: got %q, want both entries", out)
	}
}

func TestCmdTxnCommitsAllPairsAtomically(t *testing.T) {
	db := testDB(t)
	out := captureStdout(t, func() {
		if code := cmdTxn([]string{"--db", db, "a=1", "b=2", "c=3"}); code != 0 {
			t.Fatalf("txn: exit code %d", code)
		}
	})
	if !strings.Contains(out, "committed 3/3") {
		t.Fatalf("txn: got %q, want a 3/3 commit summary", out)
	}

	out = captureStdout(t, func() { cmdList([]string{"--db", db}) })
	for _, want := range []string{"a\t1", "b\t2", "c\t3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("txn: list missing %q, got %q", want, out)
		}
	}
}

func TestCmdTxnRejectsMalformedPair(t *testing.T) {
	db := testDB(t)
	code := cmdTxn([]string{"--db", db, "novalue"})
	if code != 1 {
		t.Fatalf("txn with malformed pair: exit code %d, want 1", code)
	}
}

// TestCmdBatchPushIntegrateDiffRoundTrip exercises the syncengine.OpSet
// wiring end to end: batch-push coalesces several independent writes
// into one DiffResponse payload, which integrate-diff on the other side
// applies in a single call.
func TestCmdBatchPushIntegrateDiffRoundTrip(t *testing.T) {
	senderDB := testDB(t)

	out := captureStdout(t, func() {
		code := cmdBatchPush([]string{"--db", senderDB, "--peer-id", "alice", "a=1", "b=2", "c=3"})
		if code != 0 {
			t.Fatalf("batch-push: exit code %d", code)
		}
	})
	if out == "" {
		t.Fatal("batch-push: expected a non-empty DiffResponse payload on stdout")
	}

	receiverDB := testDB(t)
	withStdin(t, []byte(out), func() {
		code := cmdIntegrateDiff([]string{"--db", receiverDB, "--peer-id", "bob"})
		if code != 0 {
			t.Fatalf("integrate-diff: exit code %d", code)
		}
	})

	listOut := captureStdout(t, func() { cmdList([]string{"--db", receiverDB}) })
	for _, want := range []string{"a\t1", "b\t2", "c\t3"} {
		if !strings.Contains(listOut, want) {
			t.Fatalf("batch-push round trip: receiver missing %q, got %q", want, listOut)
		}
	}
}

func TestCmdBatchPushRejectsMalformedPair(t *testing.T) {
	db := testDB(t)
	code := cmdBatchPush([]string{"--db", db, "novalue"})
	if code != 1 {
		t.Fatalf("batch-push with malformed pair: exit code %d, want 1", code)
	}
}

func TestCmdInitReportsPeerID(t *testing.T) {
	db := testDB(t)
	out := captureStdout(t, func() {
		if code := cmdInit([]string{"--db", db, "--peer-id", "alice"}); code != 0 {
			t.Fatalf("init: exit code %d", code)
		}
	})
	if !strings.Contains(out, "peer id:") {
		t.Fatalf("init: got %q, want a peer id line", out)
	}
}
