package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/messages"
)

// printer writes one received frame.
type printer interface {
	Print(at time.Time, f canbus.Frame) error
}

type textPrinter struct {
	w      io.Writer
	layout arke.Layout
	color  bool
}

// style is the ANSI color pair of a line: one for the time stamp, one for
// the message.
type style struct{ stamp, body string }

var (
	styleControl   = style{"\033[30;46m", "\033[36;49m"}
	stylePriority  = style{"\033[39;41m", "\033[31;49m"}
	styleMessage   = style{"\033[30;47m", "\033[m"}
	styleHeartbeat = style{"\033[30;45m", "\033[35;49m"}
	styleRequest   = style{"\033[30;43m", "\033[33;49m"}
	styleForeign   = style{"\033[30;47m", "\033[2;49m"}
)

const colorReset = "\033[m"

func styleOf(m messages.Message, err error) style {
	switch {
	case err != nil:
		return styleForeign
	case m.Request:
		return styleRequest
	}
	switch m.Type {
	case arke.NetworkControl:
		return styleControl
	case arke.HighPriority:
		return stylePriority
	case arke.Heartbeat:
		return styleHeartbeat
	}
	return styleMessage
}

func (p *textPrinter) Print(at time.Time, f canbus.Frame) error {
	stamp := at.Format("15:04:05.000")
	m, err := messages.Parse(p.layout, f)
	line := fmt.Sprint(m)
	if err != nil {
		line = fmt.Sprintf("%s (%v)", f, err)
	}
	if p.color {
		s := styleOf(m, err)
		_, err = fmt.Fprintf(p.w, "%s%s%s %s%s\n", s.stamp, stamp, s.body, line, colorReset)
		return err
	}
	_, err = fmt.Fprintf(p.w, "%s %s\n", stamp, line)
	return err
}

// record is the YAML document written for each frame.
type record struct {
	Time    time.Time `yaml:"time"`
	ID      string    `yaml:"id"`
	Raw     string    `yaml:"raw"`
	Type    string    `yaml:"type,omitempty"`
	Class   string    `yaml:"class,omitempty"`
	Node    *int      `yaml:"node,omitempty"`
	Command string    `yaml:"command,omitempty"`
	Request bool      `yaml:"request,omitempty"`
	Message string    `yaml:"message,omitempty"`
	Error   string    `yaml:"error,omitempty"`
}

type yamlPrinter struct {
	enc    *yaml.Encoder
	layout arke.Layout
}

func newYAMLPrinter(w io.Writer, l arke.Layout) *yamlPrinter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &yamlPrinter{enc: enc, layout: l}
}

func (p *yamlPrinter) Print(at time.Time, f canbus.Frame) error {
	r := record{Time: at, ID: fmt.Sprintf("0x%03x", f.ID), Raw: f.String()}
	m, err := messages.Parse(p.layout, f)
	if err != nil {
		r.Error = err.Error()
	}
	if !errors.Is(err, messages.ErrNotArke) {
		r.Type = m.Type.String()
		r.Request = m.Request
		if m.Type == arke.NetworkControl {
			r.Command = m.Command.String()
		} else {
			node := int(m.Node)
			r.Node = &node
			r.Class = m.Class.String()
		}
		if m.Payload != nil {
			r.Message = m.Payload.String()
		}
	}
	return p.enc.Encode(r)
}

func (p *yamlPrinter) Close() error { return p.enc.Close() }
