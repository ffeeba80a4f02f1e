package matcher

import (
	"context"
	"testing"
)

func TestPhrase_Match(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		text    string
		phrases []string
		want    bool
	}{
		{"exact word", ModeWord, "I want a refund", []string{"refund"}, true},
		{"case folded", ModeWord, "REFUND now", []string{"Refund"}, true},
		{"diacritics folded", ModeWord, "quero um reembolsó", []string{"reembolso"}, true},
		{"multi word phrase", ModeWord, "can I get my money back?", []string{"money back"}, true},
		{"phrase words out of order", ModeWord, "back my money", []string{"money back"}, false},
		{"word boundary", ModeWord, "refunded already", []string{"refund"}, false},
		{"punctuation boundary", ModeWord, "refund!", []string{"refund"}, true},
		{"substring inside word", ModeSubstring, "refunded already", []string{"refund"}, true},
		{"substring no match", ModeSubstring, "hello", []string{"refund"}, false},
		{"blank phrase ignored", ModeWord, "anything", []string{"  ", ""}, false},
		{"blank phrase ignored substring", ModeSubstring, "anything", []string{" "}, false},
		{"any phrase", ModeWord, "opening hours", []string{"refund", "hours"}, true},
		{"no phrases", ModeWord, "refund", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(tc.mode).Match(context.Background(), tc.text, tc.phrases)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tc.text, tc.phrases, got, tc.want)
			}
		})
	}
}

func TestPhrase_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(ModeWord).Match(ctx, "refund", []string{"refund"}); err == nil {
		t.Error("expected context error")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeWord, false},
		{"word", ModeWord, false},
		{"Substring", ModeSubstring, false},
		{"regex", "", true},
	}
	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
