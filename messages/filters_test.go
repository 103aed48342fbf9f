package messages

import (
	"testing"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
)

func TestFilters(t *testing.T) {
	l := arke.DefaultLayout
	heartbeat := canbus.MustFrame(0x781, nil)          // celaeno 1
	status := canbus.MustFrame(0x58a, []byte{0, 0, 0}) // celaeno 2, class 0x31
	zeusPing := Ping(l, arke.Zeus)
	celaenoPing := Ping(l, arke.Celaeno)
	errReport := canbus.MustFrame(0x003, []byte{0x30, 1, 0, 0})
	extended := canbus.Frame{ID: 0x781, Extended: true}
	remote := canbus.Frame{ID: 0x781, RTR: true}

	cases := []struct {
		name   string
		filter canbus.FrameFilter
		frame  canbus.Frame
		want   bool
	}{
		{"arke heartbeat", Arke(), heartbeat, true},
		{"arke extended", Arke(), extended, false},
		{"foreign extended", Foreign(), extended, true},
		{"arke remote", Arke(), remote, true},
		{"foreign remote", Foreign(), remote, false},
		{"requests remote", Requests(), remote, true},
		{"requests heartbeat", Requests(), heartbeat, false},
		{"requests extended", Requests(), canbus.Frame{ID: 0x781, Extended: true, RTR: true}, false},
		{"foreign heartbeat", Foreign(), heartbeat, false},
		{"type heartbeat", ByType(l, arke.Heartbeat), heartbeat, true},
		{"type heartbeat vs message", ByType(l, arke.Heartbeat), status, false},
		{"types message or control", ByType(l, arke.Message, arke.NetworkControl), errReport, true},
		{"no types", ByType(l), heartbeat, false},
		{"family celaeno status", ByFamily(l, arke.Celaeno), status, true},
		{"family celaeno ping", ByFamily(l, arke.Celaeno), celaenoPing, true},
		{"family celaeno zeus ping", ByFamily(l, arke.Celaeno), zeusPing, false},
		{"family on extended", ByFamily(l, arke.Celaeno), extended, false},
		{"node 2 status", ByNode(l, arke.Celaeno, 2), status, true},
		{"node 1 status", ByNode(l, arke.Celaeno, 1), status, false},
		{"node 1 heartbeat", ByNode(l, arke.Celaeno, 1), heartbeat, true},
		{"node 7 ping", ByNode(l, arke.Celaeno, 7), celaenoPing, false},
	}
	for _, tc := range cases {
		if got := tc.filter(tc.frame); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
