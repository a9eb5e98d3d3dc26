package model

import (
	"fmt"
	"strings"
)

// Platform identifies a third-party social network.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// AllPlatforms lists every supported platform in display order.
var AllPlatforms = []Platform{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformFacebook,
	PlatformInstagram,
	PlatformTikTok,
	PlatformYouTube,
}

func (p Platform) String() string { return string(p) }

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform normalizes a platform name coming from a route or a request body.
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	if !p.Valid() {
		return "", &PlatformError{
			Kind:     KindInvalidRequest,
			Platform: p,
			Message:  fmt.Sprintf("platform %s not supported", name),
		}
	}
	return p, nil
}
