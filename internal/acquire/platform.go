package acquire

import (
	"net/url"
	"strings"
)

var videoPlatforms = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"vimeo.com",
	"dailymotion.com",
	"x.com",
	"twitter.com",
}

// IsVideoPlatform reports whether locator points at a site whose pages are
// videos first. Picture scraping is pointless there once a video tier ran.
func IsVideoPlatform(locator string) bool {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range videoPlatforms {
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}
