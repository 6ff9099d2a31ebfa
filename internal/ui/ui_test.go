package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/muurk/commsframe/internal/protocol"
)

func testRows() *MessageTable {
	year := protocol.NewInt(protocol.IntDef[int16]{Name: "year", Default: 2024})
	msg := &testMessage{fields: []protocol.Field{&year}}

	tbl := &MessageTable{}
	tbl.HandleMessage(msg)
	tbl.HandleMessage(&protocol.UnknownMessage{MessageID: 0x42, Payload: []byte{0xde, 0xad}})
	return tbl
}

type testMessage struct {
	fields []protocol.Field
}

func (m *testMessage) ID() protocol.MsgID       { return 7 }
func (m *testMessage) Name() string             { return "Sample" }
func (m *testMessage) Fields() []protocol.Field { return m.fields }

func TestMessageTableRows(t *testing.T) {
	tbl := testRows()
	td.Cmp(t, tbl.Len(), 2)
	td.Cmp(t, tbl.Unknown(), 1)
	td.Cmp(t, tbl.Rows(), []MessageRow{
		{Index: 1, ID: 7, Kind: "Sample", Fields: "year=2024"},
		{Index: 2, ID: 0x42, Kind: "Unknown", Fields: "de ad", Unknown: true},
	})
}

func TestMessageTablePlain(t *testing.T) {
	var buf bytes.Buffer
	if err := testRows().WritePlain(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	td.Cmp(t, len(lines), 3)
	td.Cmp(t, strings.Fields(lines[0]), []string{"#", "ID", "Kind", "Fields"})
	td.Cmp(t, strings.Fields(lines[1]), []string{"1", "0x07", "Sample", "year=2024"})
	td.Cmp(t, strings.Fields(lines[2]), []string{"2", "0x42", "Unknown", "de", "ad"})
}

func TestMessageTableSourceColumn(t *testing.T) {
	tbl := &MessageTable{Source: "10.0.0.2:5000"}
	tbl.HandleMessage(&protocol.UnknownMessage{MessageID: 1})

	var buf bytes.Buffer
	td.CmpNoError(t, tbl.WritePlain(&buf))
	td.Cmp(t, buf.String(), td.Contains("Source"))
	td.Cmp(t, buf.String(), td.Contains("10.0.0.2:5000"))
}

func TestMessageTableRender(t *testing.T) {
	out := testRows().Render(80)
	td.Cmp(t, out, td.Contains("Kind"))
	td.Cmp(t, out, td.Contains("Sample"))
	td.Cmp(t, out, td.Contains("0x42"))
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	td.CmpFalse(t, p.Styled())
	td.Cmp(t, p.Width(), MinTerminalWidth)

	p.PrintHeader(NewHeader("Decode", "commsframe decode", 0))
	p.PrintResult(NewFailureResult("2 corrupt frames", errors.New("bad checksum")))

	td.Cmp(t, buf.String(), "error: 2 corrupt frames\n  bad checksum\n")
}

func TestResultRender(t *testing.T) {
	r := NewSuccessResult("3 frames decoded").
		AddDetail("Consumed", "30 bytes").
		AddDetail("Unknown", "1").
		SetWidth(70)
	out := r.Render()
	td.Cmp(t, out, td.Contains("SUCCESS"))
	td.Cmp(t, strings.Index(out, "Consumed") < strings.Index(out, "Unknown"), true, "details keep order")

	out = NewFailureResult("decode failed", errors.Join(errors.New("first"), errors.New("second")), "check the sync bytes").Render()
	td.Cmp(t, out, td.All(td.Contains("FAILED"), td.Contains("first"), td.Contains("second"), td.Contains("check the sync bytes")))
}

func TestHeaderRender(t *testing.T) {
	out := NewHeader("serve", "commsframe serve", 70,
		Param{Key: "Listen", Value: ":8765"},
		Param{Key: "Path", Value: "/ws"},
	).Render()
	td.Cmp(t, out, td.All(td.Contains("SERVE"), td.Contains(":8765"), td.Contains("/ws")))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Overwrite", []string{"config exists"}, "Replace it?")
		td.Cmp(t, got, tt.want, "input %q", tt.input)
		td.Cmp(t, out.String(), td.Contains("Replace it? [y/N]"))
	}
}
