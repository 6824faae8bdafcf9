package lang

import "testing"

func TestMatch_FirstMatchWins(t *testing.T) {
	t.Parallel()

	table := CommandTable{
		English: {
			{Phrases: []string{"help me", "help"}, Action: ActionEmergency},
			{Phrases: []string{"help with location"}, Action: ActionShareLocation},
		},
	}

	// "help with location" contains "help", and the emergency command comes
	// first in table order, so it must win over the longer later phrase.
	action, ok := table.Match(English, "help with location")
	if !ok {
		t.Fatal("expected a match")
	}
	if action != ActionEmergency {
		t.Errorf("action = %q, want %q (first match wins)", action, ActionEmergency)
	}
}

func TestMatch_Table(t *testing.T) {
	t.Parallel()

	table := DefaultCommands()

	tests := []struct {
		name       string
		lang       Lang
		utterance  string
		wantAction Action
		wantOK     bool
	}{
		{"english emergency", English, "please HELP ME now", ActionEmergency, true},
		{"english safe", English, "i am safe, thanks", ActionSafe, true},
		{"english call police", English, "call police immediately", ActionCallPolice, true},
		{"english share location", English, "share location with mum", ActionShareLocation, true},
		{"swahili emergency", Swahili, "nisaidie", ActionEmergency, true},
		{"swahili safe", Swahili, "niko salama sasa hivi", ActionSafe, true},
		{"swahili call police", Swahili, "piga simu polisi tafadhali", ActionCallPolice, true},
		{"substring containment", English, "xxhelpxx", ActionEmergency, true},
		{"wrong language table", Swahili, "help me", "", false},
		{"no match", English, "what a lovely day", "", false},
		{"empty utterance", English, "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			action, ok := table.Match(tt.lang, tt.utterance)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if action != tt.wantAction {
				t.Errorf("action = %q, want %q", action, tt.wantAction)
			}
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	t.Parallel()

	table := DefaultCommands()
	first, firstOK := table.Match(Swahili, "tuma mahali kwa mama")
	for i := 0; i < 100; i++ {
		action, ok := table.Match(Swahili, "tuma mahali kwa mama")
		if action != first || ok != firstOK {
			t.Fatalf("call %d returned (%q, %v), first call returned (%q, %v)", i, action, ok, first, firstOK)
		}
	}
}

func TestScan_Table(t *testing.T) {
	t.Parallel()

	table := DefaultDangerWords()

	tests := []struct {
		name      string
		lang      Lang
		utterance string
		wantWord  string
		wantOK    bool
	}{
		{"swahili critical word", Swahili, "mauaji yametokea", "mauaji", true},
		{"swahili phrase", Swahili, "kuna hali ya dharura hapa", "hali ya dharura", true},
		{"english word under swahili lang", Swahili, "there is a GUN here", "gun", true},
		{"english word under english lang", English, "he has a knife", "knife", true},
		{"swahili word under english lang", English, "mauaji yametokea", "", false},
		{"command phrase is not a danger word", Swahili, "dharura", "", false},
		{"embedded substring still fires", Swahili, "amechomoa kisuche", "kisu", true},
		{"clean utterance", Swahili, "habari ya asubuhi", "", false},
		{"empty utterance", Swahili, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			word, ok := table.Scan(tt.lang, tt.utterance)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if word != tt.wantWord {
				t.Errorf("word = %q, want %q", word, tt.wantWord)
			}
		})
	}
}

func TestScan_UnionIncludesEnglishFirst(t *testing.T) {
	t.Parallel()

	// A word present in both lists reports the English entry because the
	// English table is scanned first in the union.
	table := DangerTable{
		English: {"hatari"},
		Swahili: {"hatari", "kisu"},
	}

	word, ok := table.Scan(Swahili, "kuna hatari")
	if !ok || word != "hatari" {
		t.Fatalf("Scan = (%q, %v), want (hatari, true)", word, ok)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  Nisaidie SASA \n"); got != "nisaidie sasa" {
		t.Errorf("Normalize = %q, want %q", got, "nisaidie sasa")
	}
}

func TestLangTag(t *testing.T) {
	t.Parallel()

	if got := Swahili.Tag(); got != "sw-KE" {
		t.Errorf("Swahili.Tag() = %q, want sw-KE", got)
	}
	if got := English.Tag(); got != "en-US" {
		t.Errorf("English.Tag() = %q, want en-US", got)
	}
	if Lang("fr").IsValid() {
		t.Error("fr should not be a valid language")
	}
}
