package local

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

type stepClock struct {
	serial uint32
	now    uint32
}

func (c *stepClock) NextSerial() uint32 {
	c.serial++
	return c.serial
}

func (c *stepClock) CurrentTimeMsecs() uint32 { return c.now }

func TestBuffer_GeneratesPattern(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	b := NewBuffer(BufferSpec{
		Size:    platform.Size{Width: 16, Height: 16},
		Pattern: PatternChecker,
		Color:   red,
		Accent:  white,
		Origin:  protocol.OriginBottomLeft,
	})
	img := b.Image().(*image.RGBA)
	if img.Bounds().Dx() != 16 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 4); got != red {
		t.Fatalf("first cell = %v, want base colour", got)
	}
	if got := img.RGBAAt(2, 4); got != white {
		t.Fatalf("second cell = %v, want accent", got)
	}
	// Bottom-left buffers carry their top marker in the last row.
	if got := img.RGBAAt(1, 15); got != white {
		t.Fatalf("top marker = %v, want accent", got)
	}
	if b.Image() != b.Image() {
		t.Fatalf("image should be generated once")
	}
}

func TestParsePattern(t *testing.T) {
	if p, err := ParsePattern(""); err != nil || p != PatternSolid {
		t.Fatalf("empty pattern = %q, %v", p, err)
	}
	if p, err := ParsePattern("Checker"); err != nil || p != PatternChecker {
		t.Fatalf("checker pattern = %q, %v", p, err)
	}
	if _, err := ParsePattern("stripes"); err == nil {
		t.Fatalf("expected error for unknown pattern")
	}
}

func TestOutput_FiresCallbacksOnce(t *testing.T) {
	clock := &stepClock{now: 1234}
	out := NewOutput(clock, nil)

	var got []uint32
	out.RequestFrame(1, func(ms uint32) { got = append(got, ms) })
	out.RequestFrame(2, func(ms uint32) { got = append(got, ms) })
	out.RequestFrame(3, func(ms uint32) { got = append(got, ms) })
	out.Forget(3)

	out.FrameStarted()
	out.SendFrameCallbacks()
	out.SendFrameCallbacks()

	if diff := cmp.Diff([]uint32{1234, 1234}, got); diff != "" {
		t.Fatalf("callbacks mismatch (-want +got):\n%s", diff)
	}
	st := out.Stats()
	if st.Frames != 2 || st.Delivered != 2 || st.Pending != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestSeat_RoutesByFocus(t *testing.T) {
	clock := &stepClock{}
	seat := NewSeat(clock, nil)

	seat.SetKeyboardFocus(4)
	seat.SendPointerMotion(7, platform.Point{X: 1, Y: 2}, platform.Point{X: 11, Y: 12})
	seat.SendPointerButton(1, true)
	seat.SendKey(38, true)

	var got []string
	for _, ev := range seat.History() {
		got = append(got, ev.Kind+":"+string(rune('0'+ev.Surface)))
	}
	want := []string{"keyboard-enter:4", "pointer-enter:7", "motion:7", "button:7", "key:4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if h := seat.History(); h[len(h)-1].Serial != 5 {
		t.Fatalf("expected serials to increase, last = %d", h[len(h)-1].Serial)
	}
	if seat.Counts()["key"] != 1 {
		t.Fatalf("expected one key event counted")
	}
}

func TestSeat_HistoryIsBounded(t *testing.T) {
	seat := NewSeat(nil, nil)
	for i := 0; i < defaultHistory+10; i++ {
		seat.SendKey(uint32(i), true)
	}
	h := seat.History()
	if len(h) != defaultHistory {
		t.Fatalf("history length = %d, want %d", len(h), defaultHistory)
	}
	if h[0].Detail != "scancode=10 pressed=true" {
		t.Fatalf("oldest kept event = %q", h[0].Detail)
	}
}
