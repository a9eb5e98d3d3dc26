package configuration

import (
	"fmt"
	"strings"
)

var defaultScopes = map[string][]string{
	"twitter":   {"tweet.read", "tweet.write", "users.read", "offline.access"},
	"linkedin":  {"r_liteprofile", "w_member_social"},
	"facebook":  {"pages_show_list", "pages_read_engagement", "pages_manage_posts", "public_profile"},
	"instagram": {"instagram_basic", "instagram_content_publish", "pages_show_list", "pages_read_engagement"},
	"tiktok":    {"user.info.basic", "video.publish", "video.list"},
	"youtube": {
		"https://www.googleapis.com/auth/youtube",
		"https://www.googleapis.com/auth/youtube.upload",
		"https://www.googleapis.com/auth/youtube.force-ssl",
	},
}

// GetOAuthClient resolves the registered application for platform from config with
// <PLATFORM>_CLIENT_ID / _CLIENT_SECRET / _REDIRECT_URI environment overrides.
// Instagram reuses the Facebook app when it has no client of its own.
func GetOAuthClient(platform string) OAuthClient {
	var conf OAuthClient
	switch platform {
	case "twitter":
		conf = C.OAuth.Twitter
	case "linkedin":
		conf = C.OAuth.LinkedIn
	case "facebook":
		conf = C.OAuth.Facebook
	case "instagram":
		conf = C.OAuth.Instagram
		if conf.ClientID == "" {
			conf.ClientID = C.OAuth.Facebook.ClientID
			conf.ClientSecret = C.OAuth.Facebook.ClientSecret
		}
	case "tiktok":
		conf = C.OAuth.TikTok
	case "youtube":
		conf = C.OAuth.YouTube
	}
	prefix := strings.ToUpper(platform)
	defaultRedirect := fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(C.App.PublicBaseURL, "/"), platform)
	out := OAuthClient{
		ClientID:     getConfigValue(conf.ClientID, prefix+"_CLIENT_ID", ""),
		ClientSecret: getConfigValue(conf.ClientSecret, prefix+"_CLIENT_SECRET", ""),
		RedirectURI:  getConfigValue(conf.RedirectURI, prefix+"_REDIRECT_URI", defaultRedirect),
		Scopes:       conf.Scopes,
	}
	if len(out.Scopes) == 0 {
		out.Scopes = defaultScopes[platform]
	}
	if C.App.TLSEnabled && strings.HasPrefix(out.RedirectURI, "http://") {
		out.RedirectURI = "https://" + strings.TrimPrefix(out.RedirectURI, "http://")
	}
	return out
}
