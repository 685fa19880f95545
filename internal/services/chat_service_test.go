package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/arman-d/ConsultLinkBack/internal/models"
)

func TestSessionClosed(t *testing.T) {
	now := time.Date(2026, 9, 7, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session models.ChatSession
		want    bool
	}{
		{
			name:    "active and fresh",
			session: models.ChatSession{Status: models.SessionActive, CreatedAt: now.Add(-time.Hour)},
			want:    false,
		},
		{
			name:    "explicitly completed",
			session: models.ChatSession{Status: models.SessionCompleted, CreatedAt: now.Add(-time.Hour)},
			want:    true,
		},
		{
			name:    "just under the lifetime",
			session: models.ChatSession{Status: models.SessionActive, CreatedAt: now.Add(-sessionLifetime + time.Second)},
			want:    false,
		},
		{
			name:    "exactly at the lifetime",
			session: models.ChatSession{Status: models.SessionActive, CreatedAt: now.Add(-sessionLifetime)},
			want:    true,
		},
		{
			name:    "thirteen hours old",
			session: models.ChatSession{Status: models.SessionActive, CreatedAt: now.Add(-13 * time.Hour)},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionClosed(&tt.session, now); got != tt.want {
				t.Errorf("sessionClosed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionLocked(t *testing.T) {
	now := time.Date(2026, 9, 7, 20, 0, 0, 0, time.UTC)

	open := models.ChatSession{Status: models.SessionActive, CreatedAt: now.Add(-time.Hour)}
	if sessionLocked(&open, now) {
		t.Error("fresh active session should not be locked")
	}

	rated := open
	rated.RatingSubmitted = true
	if !sessionLocked(&rated, now) {
		t.Error("rating submission should lock an otherwise open session")
	}

	overdue := models.ChatSession{Status: models.SessionActive, CreatedAt: now.Add(-13 * time.Hour)}
	if !sessionLocked(&overdue, now) {
		t.Error("session past its lifetime should be locked")
	}
}

func TestMessagePreview(t *testing.T) {
	long := strings.Repeat("x", 200)

	tests := []struct {
		name    string
		message models.ChatMessage
		want    string
	}{
		{
			name:    "plain text",
			message: models.ChatMessage{Kind: models.MessageKindText, Content: "see you at 3"},
			want:    "see you at 3",
		},
		{
			name:    "long text is truncated",
			message: models.ChatMessage{Kind: models.MessageKindText, Content: long},
			want:    long[:120],
		},
		{
			// 119 single-byte chars then a three-byte rune straddling the
			// cutoff; the whole rune must go, not just its tail bytes.
			name:    "truncation lands on a rune boundary",
			message: models.ChatMessage{Kind: models.MessageKindText, Content: strings.Repeat("x", 119) + "日本語"},
			want:    strings.Repeat("x", 119),
		},
		{
			name:    "image",
			message: models.ChatMessage{Kind: models.MessageKindImage, Content: ""},
			want:    "[image]",
		},
		{
			name:    "file",
			message: models.ChatMessage{Kind: models.MessageKindFile, Content: ""},
			want:    "[file]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := messagePreview(&tt.message)
			if got != tt.want {
				t.Errorf("messagePreview() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("messagePreview() produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestFormatChatTimestamp(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	ts := time.Date(2026, 9, 7, 22, 30, 0, 0, loc)
	if got := FormatChatTimestamp(ts); got != "2026-09-07T14:30:00Z" {
		t.Errorf("FormatChatTimestamp() = %q, want %q", got, "2026-09-07T14:30:00Z")
	}
}
