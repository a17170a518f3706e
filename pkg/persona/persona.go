// Package persona maps agent and job names to display attributes.
package persona

import "strings"

// Persona holds the display attributes for an agent or bot
type Persona struct {
	Emoji   string `json:"emoji" yaml:"emoji"`
	Color   string `json:"color" yaml:"color"`
	Tagline string `json:"tagline" yaml:"tagline"`
	Role    string `json:"role" yaml:"role"`
}

// Entry binds a lookup key to a persona
type Entry struct {
	Key     string  `json:"key" yaml:"key"`
	Persona Persona `json:"persona" yaml:"persona"`
}

// Default is returned when no entry matches
var Default = Persona{Emoji: "🤖", Color: "#71717a", Tagline: "Just here to help", Role: "Agent"}

// Table is an ordered list of personas. Lookups walk it front to back and the
// first match wins.
type Table struct {
	entries []Entry
}

// NewTable creates a lookup table preserving the order of entries
func NewTable(entries []Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// DefaultTable returns the built-in fleet personas
func DefaultTable() *Table {
	return NewTable(builtin)
}

// Lookup returns the first persona whose key contains name or is contained in
// name, or Default when nothing matches
func (t *Table) Lookup(name string) Persona {
	if name == "" {
		return Default
	}
	for _, entry := range t.entries {
		if strings.Contains(name, entry.Key) || strings.Contains(entry.Key, name) {
			return entry.Persona
		}
	}
	return Default
}

// Entries returns a copy of the table entries in lookup order
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

var builtin = []Entry{
	{Key: "Legion", Persona: Persona{Emoji: "🦂", Color: "#7c3aed", Tagline: "Fix first, chat second", Role: "Main Agent"}},
	{Key: "inbox-triage", Persona: Persona{Emoji: "📧", Color: "#3b82f6", Tagline: "Sorting the noise", Role: "Email Handler"}},
	{Key: "Check both email inboxes", Persona: Persona{Emoji: "📬", Color: "#06b6d4", Tagline: "Zero inbox warrior", Role: "Email Handler"}},
	{Key: "Check for Kyle's GitH", Persona: Persona{Emoji: "🐙", Color: "#8b5cf6", Tagline: "Hunting issues", Role: "GitHub Scout"}},
	{Key: "Nightly Idea Generation", Persona: Persona{Emoji: "💡", Color: "#f59e0b", Tagline: "Dreaming up features", Role: "Idea Machine"}},
	{Key: "Nightly Process Impro", Persona: Persona{Emoji: "🔧", Color: "#10b981", Tagline: "Always optimizing", Role: "Process Engineer"}},
	{Key: "ApexForm Nightly", Persona: Persona{Emoji: "💪", Color: "#3b82f6", Tagline: "Testing fitness", Role: "QA Bot"}},
	{Key: "Hamono Nightly", Persona: Persona{Emoji: "⚔️", Color: "#f59e0b", Tagline: "Forging blades", Role: "Game Tester"}},
	{Key: "ShootRebook Nightly", Persona: Persona{Emoji: "📷", Color: "#22c55e", Tagline: "Booking photographer", Role: "Scheduling Bot"}},
	{Key: "StitchAI Nightly", Persona: Persona{Emoji: "🧵", Color: "#8b5cf6", Tagline: "Stitching visions", Role: "Image Bot"}},
	{Key: "Morning Briefing", Persona: Persona{Emoji: "☕", Color: "#f97316", Tagline: "Your daily digest", Role: "News Bot"}},
	{Key: "GitHub Backlog Updater", Persona: Persona{Emoji: "📋", Color: "#ec4899", Tagline: "Taming the backlog", Role: "Project Manager"}},
	{Key: "OpenClaw Backup", Persona: Persona{Emoji: "💾", Color: "#14b8a6", Tagline: "Saving everything", Role: "Backup Bot"}},
	{Key: "Weekly Workspace Reset", Persona: Persona{Emoji: "🧹", Color: "#64748b", Tagline: "Fresh start weekly", Role: "Janitor"}},
}
