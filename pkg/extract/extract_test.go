package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"streamscout/pkg/models"
)

func TestSocialLinks(t *testing.T) {
	tests := []struct {
		name string
		bio  string
		want models.SocialLinks
	}{
		{
			name: "empty",
			bio:  "",
			want: models.SocialLinks{Other: []string{}},
		},
		{
			name: "x.com is normalised to twitter",
			bio:  "Folgt mir auf https://x.com/GamerDE_123 !",
			want: models.SocialLinks{Twitter: "https://twitter.com/GamerDE_123", Other: []string{}},
		},
		{
			name: "every network",
			bio: "twitter.com/a_b www.instagram.com/insta.name youtube.com/@TubeName " +
				"discord.gg/AbC123 tiktok.com/@tik.tok",
			want: models.SocialLinks{
				Twitter:   "https://twitter.com/a_b",
				Instagram: "https://instagram.com/insta.name",
				YouTube:   "https://youtube.com/TubeName",
				Discord:   "https://discord.gg/AbC123",
				TikTok:    "https://tiktok.com/@tik.tok",
				Other:     []string{},
			},
		},
		{
			name: "youtube channel path and short link",
			bio:  "https://youtube.com/channel/UCabc-123_x",
			want: models.SocialLinks{YouTube: "https://youtube.com/UCabc-123_x", Other: []string{}},
		},
		{
			name: "youtu.be",
			bio:  "clips: youtu.be/dQw4w9WgXcQ",
			want: models.SocialLinks{YouTube: "https://youtube.com/dQw4w9WgXcQ", Other: []string{}},
		},
		{
			name: "discord invite path",
			bio:  "Community: https://discord.com/invite/xyz789",
			want: models.SocialLinks{Discord: "https://discord.gg/xyz789", Other: []string{}},
		},
		{
			name: "case insensitive host",
			bio:  "HTTPS://WWW.TWITTER.COM/Loud",
			want: models.SocialLinks{Twitter: "https://twitter.com/Loud", Other: []string{}},
		},
		{
			name: "first match wins",
			bio:  "twitter.com/first and twitter.com/second",
			want: models.SocialLinks{Twitter: "https://twitter.com/first", Other: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SocialLinks(tt.bio)); diff != "" {
				t.Errorf("SocialLinks() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmails(t *testing.T) {
	tests := []struct {
		name string
		bio  string
		want []string
	}{
		{name: "empty", bio: "", want: []string{}},
		{name: "none", bio: "just vibes", want: []string{}},
		{name: "single", bio: "Business: Contact.Me@Streamer.de", want: []string{"Contact.Me@Streamer.de"}},
		{
			name: "dedup keeps first spelling",
			bio:  "biz@team.gg or BIZ@team.gg or other@team.gg",
			want: []string{"biz@team.gg", "other@team.gg"},
		},
		{
			name: "placeholders and automated senders dropped",
			bio:  "your@email.com noreply@foo.com no-reply@bar.io donotreply@x.de support@agency.com info@twitch.tv me@example.org real@mail.com",
			want: []string{"real@mail.com"},
		},
		{
			name: "exact placeholder ignores case",
			bio:  "Test@Test.com",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Emails(tt.bio)); diff != "" {
				t.Errorf("Emails() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	got := Extract("Anfragen an mail@creator.de | discord.gg/creator")

	assert.Equal(t, []string{"mail@creator.de"}, got.Emails)
	assert.Equal(t, "https://discord.gg/creator", got.Links.Discord)
	assert.False(t, got.Links.Empty())
}
