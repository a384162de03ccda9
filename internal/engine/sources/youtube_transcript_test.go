package sources

import (
	"testing"
)

func TestPickTrack(t *testing.T) {
	manualEN := captionTrack{BaseURL: "https://yt/manual-en", LanguageCode: "en"}
	autoEN := captionTrack{BaseURL: "https://yt/auto-en", LanguageCode: "en", Kind: "asr"}
	manualDE := captionTrack{BaseURL: "https://yt/manual-de", LanguageCode: "de"}
	autoES := captionTrack{BaseURL: "https://yt/auto-es", LanguageCode: "es", Kind: "asr"}
	poTokenEN := captionTrack{BaseURL: "https://yt/manual-en?a=b&exp=xpe", LanguageCode: "en"}

	tests := []struct {
		name   string
		tracks []captionTrack
		langs  []string
		want   string
		wantOK bool
	}{
		{
			name:   "manual beats asr within language",
			tracks: []captionTrack{autoEN, manualEN},
			langs:  []string{"en"},
			want:   manualEN.BaseURL, wantOK: true,
		},
		{
			name:   "asr used when no manual",
			tracks: []captionTrack{autoEN, manualDE},
			langs:  []string{"en"},
			want:   autoEN.BaseURL, wantOK: true,
		},
		{
			name:   "language priority over kind",
			tracks: []captionTrack{manualDE, autoEN},
			langs:  []string{"en", "de"},
			want:   autoEN.BaseURL, wantOK: true,
		},
		{
			name:   "second language when first absent",
			tracks: []captionTrack{manualDE, autoES},
			langs:  []string{"en", "de"},
			want:   manualDE.BaseURL, wantOK: true,
		},
		{
			name:   "no cross-language fallback",
			tracks: []captionTrack{manualDE, autoES},
			langs:  []string{"en"},
			wantOK: false,
		},
		{
			name:   "potoken tracks skipped",
			tracks: []captionTrack{poTokenEN, autoEN},
			langs:  []string{"en"},
			want:   autoEN.BaseURL, wantOK: true,
		},
		{
			name:   "all tracks need potoken",
			tracks: []captionTrack{poTokenEN},
			langs:  []string{"en"},
			wantOK: false,
		},
		{name: "no tracks", tracks: nil, langs: []string{"en"}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickTrack(tt.tracks, tt.langs)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.BaseURL != tt.want {
				t.Errorf("picked %q, want %q", got.BaseURL, tt.want)
			}
		})
	}
}

func TestParseTimedText(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
	<text start="0.12" dur="2.5">Hello &amp; welcome</text>
	<text start="2.62" dur="1.0"><i>formatted</i> line</text>
	<text start="3.62" dur="0.5">   </text>
	<text start="4.12" dur="3.0">the end</text>
</transcript>`)

	segments, err := parseTimedText(body)
	if err != nil {
		t.Fatalf("parseTimedText: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("segments = %d, want 3 (empty line dropped)", len(segments))
	}
	if segments[0].Start != 0.12 || segments[0].Duration != 2.5 {
		t.Errorf("timing = (%v, %v), want (0.12, 2.5)", segments[0].Start, segments[0].Duration)
	}
	if segments[0].Text != "Hello & welcome" {
		t.Errorf("text = %q, want entities decoded", segments[0].Text)
	}
	if segments[1].Text != "formatted line" {
		t.Errorf("text = %q, want tags stripped", segments[1].Text)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].Start < segments[i-1].Start {
			t.Errorf("segments out of order at %d", i)
		}
	}
}

func TestParseTimedTextInvalidXML(t *testing.T) {
	if _, err := parseTimedText([]byte("<transcript><text>unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};var x`, `{"a":1}`},
		{"nested", `{"a":{"b":[{"c":2}]}}trailing`, `{"a":{"b":[{"c":2}]}}`},
		{"braces in strings", `{"a":"}{","b":1}rest`, `{"a":"}{","b":1}`},
		{"escaped quote", `{"a":"say \"hi\" {"}x`, `{"a":"say \"hi\" {"}`},
		{"unbalanced", `{"a":1`, ""},
		{"not an object", `[1,2]`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON([]byte(tt.in))
			if string(got) != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNeedsPoToken(t *testing.T) {
	if !needsPoToken("https://yt/api/timedtext?v=x&exp=xpe") {
		t.Error("exp=xpe track must be flagged")
	}
	if needsPoToken("https://yt/api/timedtext?v=x&lang=en") {
		t.Error("plain track flagged as PoToken")
	}
}
