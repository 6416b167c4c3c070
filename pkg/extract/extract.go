package extract

import (
	"regexp"
	"strings"

	"streamscout/pkg/models"
)

// Contacts is everything pulled out of one biography
type Contacts struct {
	Emails []string
	Links  models.SocialLinks
}

type linkPattern struct {
	re     *regexp.Regexp
	format func(id string) string
}

var (
	twitterPatterns = []linkPattern{
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/([a-zA-Z0-9_]+)`), prefix("https://twitter.com/")},
	}
	instagramPatterns = []linkPattern{
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/([a-zA-Z0-9_.]+)`), prefix("https://instagram.com/")},
	}
	youtubePatterns = []linkPattern{
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/(?:c/|channel/|user/|@)?([a-zA-Z0-9_-]+)`), prefix("https://youtube.com/")},
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]+)`), prefix("https://youtube.com/")},
	}
	discordPatterns = []linkPattern{
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?discord\.gg/([a-zA-Z0-9]+)`), prefix("https://discord.gg/")},
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?discord\.com/invite/([a-zA-Z0-9]+)`), prefix("https://discord.gg/")},
	}
	tiktokPatterns = []linkPattern{
		{regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?tiktok\.com/@([a-zA-Z0-9_.]+)`), prefix("https://tiktok.com/@")},
	}

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	placeholderEmails = map[string]struct{}{
		"example@example.com": {},
		"email@example.com":   {},
		"your@email.com":      {},
		"youremail@email.com": {},
		"noreply@twitch.tv":   {},
		"support@twitch.tv":   {},
		"test@test.com":       {},
		"user@domain.com":     {},
	}

	ignoredEmailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^noreply@`),
		regexp.MustCompile(`^no-reply@`),
		regexp.MustCompile(`^donotreply@`),
		regexp.MustCompile(`^support@`),
		regexp.MustCompile(`^info@twitch`),
		regexp.MustCompile(`@example\.`),
	}
)

func prefix(p string) func(string) string {
	return func(id string) string { return p + id }
}

// Extract runs every extractor over a biography
func Extract(bio string) Contacts {
	return Contacts{
		Emails: Emails(bio),
		Links:  SocialLinks(bio),
	}
}

// SocialLinks returns the first link found per network, normalised to a
// canonical URL.
func SocialLinks(text string) models.SocialLinks {
	links := models.SocialLinks{Other: []string{}}
	if text == "" {
		return links
	}

	links.Twitter = firstMatch(text, twitterPatterns)
	links.Instagram = firstMatch(text, instagramPatterns)
	links.YouTube = firstMatch(text, youtubePatterns)
	links.Discord = firstMatch(text, discordPatterns)
	links.TikTok = firstMatch(text, tiktokPatterns)
	return links
}

func firstMatch(text string, patterns []linkPattern) string {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return p.format(m[1])
		}
	}
	return ""
}

// Emails returns the addresses in text minus placeholders and automated
// senders. Duplicates are dropped case-insensitively; the first spelling wins.
func Emails(text string) []string {
	emails := []string{}
	if text == "" {
		return emails
	}

	seen := make(map[string]struct{})
	for _, email := range emailPattern.FindAllString(text, -1) {
		lower := strings.ToLower(email)
		if _, dup := seen[lower]; dup || isPlaceholder(lower) {
			continue
		}
		seen[lower] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}

func isPlaceholder(lower string) bool {
	if _, ok := placeholderEmails[lower]; ok {
		return true
	}
	for _, re := range ignoredEmailPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
