package instagram

import (
	"fmt"
	"regexp"
)

const baseURL = "https://www.instagram.com"

// Accepted content URL shapes. Stories, profile roots and every other
// Instagram URL shape are rejected on purpose.
var sourceURLPatterns = []*regexp.Regexp{
	// Standard reel/post/tv URLs
	regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/(?:reel|p|tv)/[A-Za-z0-9_.-]+/?$`),
	// Profile-scoped variants (/username/reel/ID, /username/p/ID)
	regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.-]+/(?:reel|p)/[A-Za-z0-9_.-]+/?$`),
}

var (
	shortcodePattern = regexp.MustCompile(`(?:reel|p|tv)/([A-Za-z0-9_.-]+)`)
	usernamePattern  = regexp.MustCompile(`instagram\.com/([A-Za-z0-9_.-]+)/(?:reel|p)/`)
)

// IsValidSourceURL reports whether s is a well-formed Instagram content
// URL. Total function, no I/O.
func IsValidSourceURL(s string) bool {
	for _, pattern := range sourceURLPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// ExtractShortcode pulls the content identifier out of a post/reel/tv
// URL, or returns "" when the URL carries none
func ExtractShortcode(sourceURL string) string {
	m := shortcodePattern.FindStringSubmatch(sourceURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractUsername pulls the owning account name out of a profile-scoped
// content URL. Standard (unscoped) URLs carry no username and yield "".
func ExtractUsername(sourceURL string) string {
	m := usernamePattern.FindStringSubmatch(sourceURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// EmbedURL returns the public embed page for a content identifier
func EmbedURL(shortcode string) string {
	return fmt.Sprintf("%s/p/%s/embed/", baseURL, shortcode)
}

// ProfileURL returns the public profile page for a username
func ProfileURL(username string) string {
	return fmt.Sprintf("%s/%s/", baseURL, username)
}
