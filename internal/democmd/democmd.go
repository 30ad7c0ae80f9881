/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package democmd loads the demo server's command table from an .ini
// file: one section per command, keyed by its invocation name, giving
// its display output, help text, and completion candidates. Grounded on
// gocanopen's od_parser.go (ini.v1 section-by-section parsing); this
// table is far simpler than an EDS object dictionary, but the load
// idiom (ini.Load, walk Sections(), pull named Keys) is the same.
package democmd

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Command is one entry in the demo server's command table.
type Command struct {
	Name        string
	Display     string
	Help        string
	Completions []string
	UsePager    bool
}

// Table is the full command table, keyed by name.
type Table struct {
	commands map[string]*Command
	order    []string
}

// Load parses path into a Table. Each [section] names a command; keys
// within it are Display, Help, Completions (comma-separated), and
// UsePager (bool, default false).
func Load(path string) (*Table, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("democmd: load %s: %w", path, err)
	}

	t := &Table{commands: make(map[string]*Command)}

	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}

		cmd := &Command{
			Name: name,
			// .ini values are single-line; a literal "\n" in the
			// Display field stands in for a line break so multi-line
			// command output can still live in one key.
			Display:  strings.ReplaceAll(section.Key("Display").String(), `\n`, "\n"),
			Help:     section.Key("Help").String(),
			UsePager: section.Key("UsePager").MustBool(false),
		}
		if raw := section.Key("Completions").String(); raw != "" {
			for _, c := range strings.Split(raw, ",") {
				c = strings.TrimSpace(c)
				if c != "" {
					cmd.Completions = append(cmd.Completions, c)
				}
			}
		}

		t.commands[name] = cmd
		t.order = append(t.order, name)
		log.Debugf("democmd: loaded command %q (pager=%v)", name, cmd.UsePager)
	}

	return t, nil
}

// Lookup returns the command exactly matching name.
func (t *Table) Lookup(name string) (*Command, bool) {
	cmd, ok := t.commands[name]
	return cmd, ok
}

// Complete returns every command name with partial as a prefix, in
// table order, matching the demo server's naive linear-scan completion
// (the real UCRP server's completion algorithm is out of scope here;
// rcpsh only needs a peer that speaks the wire protocol plausibly).
func (t *Table) Complete(partial string) []string {
	var matches []string
	for _, name := range t.order {
		if strings.HasPrefix(name, partial) {
			matches = append(matches, name)
		}
	}
	return matches
}

// Names returns every command name in table order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}
