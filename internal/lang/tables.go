package lang

// DefaultCommands returns the built-in bilingual command table. The order of
// commands and of phrases within a command is the matching priority.
func DefaultCommands() CommandTable {
	return CommandTable{
		English: {
			{Phrases: []string{"help me", "emergency", "danger", "help"}, Action: ActionEmergency},
			{Phrases: []string{"i am safe", "safe now", "all good", "im safe"}, Action: ActionSafe},
			{Phrases: []string{"call police", "police help", "call cops"}, Action: ActionCallPolice},
			{Phrases: []string{"share location", "send location", "my location"}, Action: ActionShareLocation},
		},
		Swahili: {
			{Phrases: []string{"nisaidie", "dharura", "hatari", "msaada"}, Action: ActionEmergency},
			{Phrases: []string{"niko salama", "salama sasa", "niko sawa", "nimesalama"}, Action: ActionSafe},
			{Phrases: []string{"piga simu polisi", "polisi msaada", "ita polisi"}, Action: ActionCallPolice},
			{Phrases: []string{"shiriki mahali", "tuma mahali", "mahali nilipo"}, Action: ActionShareLocation},
		},
	}
}

// DefaultDangerWords returns the built-in critical trigger words. Presence of
// any of these in an utterance escalates straight to an emergency alert.
func DefaultDangerWords() DangerTable {
	return DangerTable{
		English: {
			"murder",
			"rape",
			"robbery",
			"gun",
			"knife",
			"i'm scared",
			"im scared",
			"being attacked",
			"being followed",
			"send help now",
			"police quickly",
		},
		Swahili: {
			"mauaji",          // murder
			"unyanyasaji",     // assault
			"wizi",            // theft
			"bunduki",         // gun
			"kisu",            // knife
			"naogopa",         // I'm scared
			"nateseka",        // I'm suffering
			"mwizi",           // thief
			"vibaya",          // bad/dangerous
			"nateseka sana",   // I'm suffering badly
			"nataka msaada",   // I need help
			"polisi haraka",   // police quickly
			"hali ya dharura", // state of emergency
		},
	}
}
