// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import "testing"

func TestParseReplyClassification(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want ReplyKind
	}{
		{
			name: "interim notice",
			msg:  Message{Text: "Searching the archive, please wait..."},
			want: ReplyInterim,
		},
		{
			name: "interim beats everything",
			msg:  Message{Text: "Still looking... 12 results so far"},
			want: ReplyInterim,
		},
		{
			name: "negative reply",
			msg:  Message{Text: "Sorry, nothing found for that identifier."},
			want: ReplyError,
		},
		{
			name: "negative beats count",
			msg:  Message{Text: "No results among 120 results scanned"},
			want: ReplyError,
		},
		{
			name: "list reply",
			msg:  Message{Text: "Found 7 results for your query:"},
			want: ReplyTerminalList,
		},
		{
			name: "single document default",
			msg:  Message{Text: "Here is your paper: Quantum Widgets (2019)"},
			want: ReplyTerminalSingle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReply(tt.msg)
			if got.Kind != tt.want {
				t.Errorf("ParseReply(%q).Kind = %s, want %s", tt.msg.Text, got.Kind, tt.want)
			}
		})
	}
}

func TestParseReplyResultCount(t *testing.T) {
	r := ParseReply(Message{Text: "Found 23 results:"})
	if r.Kind != ReplyTerminalList {
		t.Fatalf("Kind = %s, want list", r.Kind)
	}
	if r.ResultCount != 23 {
		t.Errorf("ResultCount = %d, want 23", r.ResultCount)
	}
}

func TestAdvertisedSize(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want int64
	}{
		{
			name: "size in text",
			msg:  Message{Text: "Quantum Widgets (2.5 MB, PDF)"},
			want: int64(2.5 * 1024 * 1024),
		},
		{
			name: "size in action label",
			msg: Message{
				Text:    "Here is your paper",
				Actions: []Action{{Label: "⬇ Download (512 KB)", Handle: "dl_1"}},
			},
			want: 512 * 1024,
		},
		{
			name: "text wins over label",
			msg: Message{
				Text:    "Your file (3 MB) is ready",
				Actions: []Action{{Label: "Download (1 MB)", Handle: "dl_1"}},
			},
			want: 3 * 1024 * 1024,
		},
		{
			name: "no annotation",
			msg:  Message{Text: "Here is your paper"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseReply(tt.msg).SizeBytes; got != tt.want {
				t.Errorf("SizeBytes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseSizeUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"800 B", 800},
		{"1.5 KiB", 1536},
		{"2 GB", 2 * 1024 * 1024 * 1024},
		{"no size here", 0},
	}
	for _, tt := range tests {
		if got := parseSize(tt.in); got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   ActionKind
	}{
		{"request label", Action{Label: "Request this paper", Handle: "req_42"}, ActionRequest},
		{"download label", Action{Label: "⬇ Download PDF", Handle: "asset_42"}, ActionDownload},
		{"get label", Action{Label: "Get full text", Handle: "asset_43"}, ActionDownload},
		{"pagination by label", Action{Label: "Show more »", Handle: "opaque_7"}, ActionPagination},
		{"pagination handle wins over label", Action{Label: "Download next batch", Handle: "page_2"}, ActionPagination},
		{"unknown", Action{Label: "About this bot", Handle: "about"}, ActionOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.action); got != tt.want {
				t.Errorf("Classify(%+v) = %d, want %d", tt.action, got, tt.want)
			}
		})
	}
}

func TestPaginationActionSkipsTried(t *testing.T) {
	m := Message{Actions: []Action{
		{Label: "Download", Handle: "asset_1"},
		{Label: "More", Handle: "more_1"},
		{Label: "Next page", Handle: "page_2"},
	}}

	tried := map[string]bool{}
	a := paginationAction(m, tried)
	if a == nil || a.Handle != "more_1" {
		t.Fatalf("first pagination action = %+v, want more_1", a)
	}

	tried["more_1"] = true
	a = paginationAction(m, tried)
	if a == nil || a.Handle != "page_2" {
		t.Fatalf("second pagination action = %+v, want page_2", a)
	}

	tried["page_2"] = true
	if a := paginationAction(m, tried); a != nil {
		t.Errorf("exhausted pagination returned %+v, want nil", a)
	}
}

func TestParseHits(t *testing.T) {
	text := "Found 3 results:\n" +
		"1. Quantum Widgets in Practice\n" +
		"https://doi.org/10.1000/widget1\n" +
		"\n" +
		"2. Widgets Revisited\n" +
		"doi:10.1000/widget2\n" +
		"\n" +
		"3. An entry with no identifier\n"

	hits := parseHits(text)
	if len(hits) != 2 {
		t.Fatalf("parseHits returned %d hits, want 2", len(hits))
	}
	if hits[0].DOI != "10.1000/widget1" || hits[0].Title != "Quantum Widgets in Practice" {
		t.Errorf("first hit = %+v", hits[0])
	}
	if hits[1].DOI != "10.1000/widget2" || hits[1].Title != "Widgets Revisited" {
		t.Errorf("second hit = %+v", hits[1])
	}
}
