package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/muurk/commsframe/internal/capture"
	"github.com/muurk/commsframe/internal/protocol"
	"github.com/muurk/commsframe/internal/protocol/sample"
	"github.com/muurk/commsframe/internal/server"
)

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type run struct {
	config string
	stdin  string
}

func newRun(t *testing.T) *run {
	return &run{config: filepath.Join(t.TempDir(), "config.yaml")}
}

func (r *run) execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(r.stdin))
	rootCmd.SetArgs(append([]string{"--config", r.config}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := newRun(t).execute("version")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.HasPrefix("commsframe "))
}

func TestEncodeDecode(t *testing.T) {
	r := newRun(t)
	out, err := r.execute("encode", "msg2", "--date", "2127-01-10")
	td.CmpNoError(t, err)
	frameHex := strings.TrimSpace(out)
	td.Cmp(t, frameHex, td.HasPrefix("abcd0004027f010a"))
	td.Cmp(t, len(frameHex), 20)

	out, err = r.execute("decode", frameHex)
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.All(
		td.Contains("Msg2"),
		td.Contains("year=2127, month=1, day=10"),
		td.Contains("ok: 1 message(s) decoded"),
	))
}

func TestDecodeStdin(t *testing.T) {
	r := newRun(t)
	var frames []string
	for _, args := range [][]string{
		{"encode", "msg1", "--counter", "42", "--temperature", "21.5"},
		{"encode", "msg3", "--status", "running", "--label", "pump 2"},
	} {
		out, err := r.execute(args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		frames = append(frames, strings.TrimSpace(out))
	}

	r.stdin = strings.Join(frames, "\n")
	out, err := r.execute("decode", "-")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.All(
		td.Contains("counter=42"),
		td.Contains("temperature=215"),
		td.Contains("status=Running(1)"),
		td.Contains(`label="pump 2"`),
		td.Contains("ok: 2 message(s) decoded"),
	))
}

func TestDecodeUnknownID(t *testing.T) {
	buf, err := sample.NewFrame().WriteMessage(&protocol.UnknownMessage{MessageID: 0x55, Payload: []byte{0xbe, 0xef}})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dump.bin")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := newRun(t).execute("decode", "--file", path, "--raw")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.All(
		td.Contains("0x55"),
		td.Contains("be ef"),
		td.Contains("warning: 1 message(s) decoded"),
	))
}

func TestDecodeErrors(t *testing.T) {
	r := newRun(t)
	out, err := r.execute("encode", "msg1")
	td.CmpNoError(t, err)
	buf, err := hex.DecodeString(strings.TrimSpace(out))
	if err != nil {
		t.Fatal(err)
	}
	buf[len(buf)-1] ^= 0x01
	corrupt := hex.EncodeToString(buf)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"corrupt frame", []string{"decode", corrupt}, "undecodable"},
		{"bad hex", []string{"decode", "abz"}, "invalid hex"},
		{"no input", []string{"decode"}, "no input"},
		{"raw argument", []string{"decode", "--raw", "abcd"}, "--raw needs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.execute(tt.args...)
			td.Cmp(t, err, td.Re(tt.want))
		})
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	r := newRun(t)

	_, err := r.execute("encode", "msg2", "--date", "1999-12-31")
	td.CmpTrue(t, errors.Is(err, protocol.ErrRange), "got %v", err)

	_, err = r.execute("encode", "msg1", "--temperature", "130")
	td.CmpTrue(t, errors.Is(err, protocol.ErrRange), "got %v", err)

	_, err = r.execute("encode", "msg3", "--status", "Broken")
	td.Cmp(t, err, td.Re(`unknown --status "Broken"`))
}

func TestEncodeSend(t *testing.T) {
	received := make(chan protocol.Message, 1)
	srv, err := server.New(&server.Config{
		Path:  "/ws",
		Frame: sample.NewFrame(),
		NewHandler: func(string) protocol.Handler {
			return protocol.HandlerFunc(func(msg protocol.Message) { received <- msg })
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, err = newRun(t).execute("encode", "msg3", "--label", "hello", "--send", url)
	td.CmpNoError(t, err)

	select {
	case msg := <-received:
		td.Cmp(t, msg.(*sample.Msg3).FieldLabel().Value(), "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("server received nothing")
	}
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	w, path, err := capture.Create(dir, "10.0.0.7:4000", capture.FormatCBOR)
	if err != nil {
		t.Fatal(err)
	}

	m := sample.NewMsg2()
	if err := m.FieldF1().FieldYear().SetValue(2077); err != nil {
		t.Fatal(err)
	}
	buf, err := sample.NewFrame().WriteMessage(m)
	if err != nil {
		t.Fatal(err)
	}
	// Split the frame across records, with another peer in between.
	for _, rec := range []capture.Record{
		capture.NewRecord("10.0.0.7:4000", buf[:3]),
		capture.NewRecord("10.0.0.8:4000", []byte{0xab}),
		capture.NewRecord("10.0.0.7:4000", buf[3:]),
	} {
		if err := w.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	td.CmpNoError(t, w.Close())

	out, err := newRun(t).execute("replay", path)
	// The second peer left a partial frame behind.
	td.Cmp(t, err, td.Re("undecodable"))
	td.Cmp(t, out, td.All(
		td.Contains("10.0.0.7:4000"),
		td.Contains("year=2077"),
		td.Contains("10.0.0.8:4000: "),
	))
}

func TestConfigInitAndShow(t *testing.T) {
	r := newRun(t)

	out, err := r.execute("config", "init")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.Contains("Wrote "+r.config))

	if err := os.WriteFile(r.config, []byte("version: 1\ndecoder:\n  resync_policy: scan\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// Declining keeps the edited file.
	r.stdin = "n\n"
	out, err = r.execute("config", "init")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.Contains("Cancelled"))

	out, err = r.execute("config", "show")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.Contains("resync_policy: scan"))

	_, err = r.execute("config", "init", "--force")
	td.CmpNoError(t, err)
	out, err = r.execute("config", "show")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.Contains("resync_policy: skip"))
}

func TestConfigTOML(t *testing.T) {
	r := &run{config: filepath.Join(t.TempDir(), "config.toml")}
	_, err := r.execute("config", "init")
	td.CmpNoError(t, err)

	out, err := r.execute("config", "show")
	td.CmpNoError(t, err)
	td.Cmp(t, out, td.Contains(`resync_policy = "skip"`))
}
