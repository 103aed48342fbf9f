package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/messages"
)

// buildMessage handles the send and get commands.
func buildMessage(l arke.Layout, priority bool, args []string) (canbus.Frame, error) {
	if len(args) < 3 {
		return canbus.Frame{}, fmt.Errorf("%s takes a class and a node id", args[0])
	}
	class, err := parseClass(args[1])
	if err != nil {
		return canbus.Frame{}, err
	}
	id, err := parseNode(args[2])
	if err != nil {
		return canbus.Frame{}, err
	}
	if args[0] == "get" {
		if len(args) != 3 {
			return canbus.Frame{}, fmt.Errorf("get takes no fields")
		}
		return messages.Request(l, class, id, priority)
	}

	p, err := messages.New(class)
	if err != nil {
		return canbus.Frame{}, err
	}
	if err := setFields(p, args[3:]); err != nil {
		return canbus.Frame{}, fmt.Errorf("%s: %w", class, err)
	}
	return messages.Frame(l, p, id, priority)
}

// parseClass accepts a class name from the class table, in any case, or
// its numeric value.
func parseClass(s string) (arke.Class, error) {
	for _, info := range arke.Classes() {
		if strings.EqualFold(info.Name, s) {
			return info.Class, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown class %q", s)
	}
	if _, ok := arke.LookupClass(arke.Class(n)); !ok {
		return 0, fmt.Errorf("%w 0x%02x", arke.ErrUnknownClass, n)
	}
	return arke.Class(n), nil
}

// setFields decodes field=value pairs into p. Values are YAML scalars, so
// durations read as "500ms" and numbers in any YAML notation.
func setFields(p any, fields []string) error {
	tree := map[string]any{}
	for _, field := range fields {
		key, raw, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return fmt.Errorf("field %q: want name=value", field)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		path := strings.Split(strings.ToLower(key), ".")
		node := tree
		for _, name := range path[:len(path)-1] {
			next, ok := node[name].(map[string]any)
			if !ok {
				if _, set := node[name]; set {
					return fmt.Errorf("field %q set twice", key)
				}
				next = map[string]any{}
				node[name] = next
			}
			node = next
		}
		last := path[len(path)-1]
		if _, set := node[last]; set {
			return fmt.Errorf("field %q set twice", key)
		}
		node[last] = value
	}

	doc, err := yaml.Marshal(tree)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	return dec.Decode(p)
}
