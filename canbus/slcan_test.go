package canbus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestSLCAN_EncodeDecode(t *testing.T) {
	cases := []struct {
		frame Frame
		line  string
	}{
		{MustFrame(0x781, nil), "t7810\r"},
		{MustFrame(0x438, []byte{0xe0, 0x1a, 0x35, 0x19, 0x7f}), "t4385E01A35197F\r"},
		{Frame{ID: 0x1ABCDEFF, Extended: true, Len: 1, Data: [8]byte{0x42}}, "T1ABCDEFF142\r"},
		{Frame{ID: 0x007, RTR: true, Len: 2}, "r0072\r"},
		{Frame{ID: 0x1ABCDEFF, Extended: true, RTR: true}, "R1ABCDEFF0\r"},
	}
	for _, tc := range cases {
		got, err := encodeSLCAN(tc.frame)
		if err != nil {
			t.Fatalf("encode %v: %v", tc.frame, err)
		}
		if string(got) != tc.line {
			t.Fatalf("encode %v: got %q want %q", tc.frame, got, tc.line)
		}
		back, err := decodeSLCAN(got[:len(got)-1])
		if err != nil {
			t.Fatalf("decode %q: %v", tc.line, err)
		}
		if back != tc.frame {
			t.Fatalf("decode %q: got %+v want %+v", tc.line, back, tc.frame)
		}
	}

	for _, bad := range []string{"t78", "t7819", "t781201", "tXYZ0", "t7812GG00"} {
		if _, err := decodeSLCAN([]byte(bad)); !errors.Is(err, ErrSLCANSyntax) {
			t.Fatalf("decode %q: got %v want ErrSLCANSyntax", bad, err)
		}
	}
}

type pipeRW struct {
	io.Reader
	out bytes.Buffer
}

func (p *pipeRW) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *pipeRW) Close() error                { return nil }

func TestSLCAN_BusSkipsAcknowledgements(t *testing.T) {
	rw := &pipeRW{Reader: bytes.NewBufferString("\rz\r\aF00\rt1012AABB\r")}
	bus := NewSLCAN(rw)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := bus.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if f.ID != 0x101 || f.Len != 2 || f.Data[0] != 0xAA || f.Data[1] != 0xBB {
		t.Fatalf("unexpected frame %v", f)
	}
	if _, err := bus.Receive(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("receive at EOF: got %v want ErrClosed", err)
	}

	if err := bus.Send(ctx, MustFrame(0x3c7, []byte{1})); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := rw.out.String(); got != "t3C7101\r" {
		t.Fatalf("wire: got %q", got)
	}
}
