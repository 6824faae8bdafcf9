// Package lang provides the bilingual voice-command and danger-word tables
// together with the pure matching functions that evaluate utterances against
// them.
//
// Matching is deliberately substring containment on case-folded text, not
// word-boundary matching. A danger word embedded in a longer unrelated word
// still triggers; this imprecision is an accepted product trade-off because
// a false escalation is far cheaper than a missed one.
//
// All tables are immutable after construction and all functions are pure, so
// everything in this package is safe for concurrent use.
package lang

import "strings"

// Lang is a supported interface language.
type Lang string

const (
	// English is the default interface language.
	English Lang = "en"

	// Swahili is the primary deployment language.
	Swahili Lang = "sw"
)

// IsValid reports whether l is a recognised language.
func (l Lang) IsValid() bool {
	return l == English || l == Swahili
}

// Tag returns the BCP-47 recognition tag for the language.
func (l Lang) Tag() string {
	switch l {
	case Swahili:
		return "sw-KE"
	default:
		return "en-US"
	}
}

// Action is a voice-command outcome.
type Action string

const (
	// ActionEmergency raises an emergency alert.
	ActionEmergency Action = "emergency"

	// ActionSafe marks the user as safe again.
	ActionSafe Action = "safe"

	// ActionCallPolice asks the host to dial the police.
	ActionCallPolice Action = "callPolice"

	// ActionShareLocation asks the host to share the current location.
	ActionShareLocation Action = "shareLocation"
)

// Command pairs an ordered phrase list with the action it triggers.
// Phrase order within a command and command order within a table are both
// significant: the first phrase contained in the utterance wins.
type Command struct {
	Phrases []string
	Action  Action
}

// CommandTable maps each language to its ordered command list.
type CommandTable map[Lang][]Command

// DangerTable maps each language to its critical trigger substrings.
// Any utterance containing one of these escalates immediately, bypassing
// command matching.
type DangerTable map[Lang][]string

// Normalize case-folds and trims an utterance for matching.
func Normalize(utterance string) string {
	return strings.TrimSpace(strings.ToLower(utterance))
}

// Match evaluates utterance against the command list for l and returns the
// first matching action in table order. The second return is false when no
// phrase is contained in the utterance.
func (t CommandTable) Match(l Lang, utterance string) (Action, bool) {
	normalized := Normalize(utterance)
	if normalized == "" {
		return "", false
	}
	for _, cmd := range t[l] {
		for _, phrase := range cmd.Phrases {
			if strings.Contains(normalized, strings.ToLower(phrase)) {
				return cmd.Action, true
			}
		}
	}
	return "", false
}

// Scan checks utterance against the union of the English danger words and the
// danger words for l. It returns the first trigger word found. Duplication
// between the two lists is harmless; the first containment wins.
func (t DangerTable) Scan(l Lang, utterance string) (string, bool) {
	normalized := Normalize(utterance)
	if normalized == "" {
		return "", false
	}
	for _, word := range t[English] {
		if strings.Contains(normalized, strings.ToLower(word)) {
			return word, true
		}
	}
	if l == English {
		return "", false
	}
	for _, word := range t[l] {
		if strings.Contains(normalized, strings.ToLower(word)) {
			return word, true
		}
	}
	return "", false
}
