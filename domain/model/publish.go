package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PublishRequest is a single post destined for one platform.
type PublishRequest struct {
	Platform  Platform       `json:"platform"`
	Content   string         `json:"content"`
	MediaURLs []string       `json:"media_urls"`
	Options   PublishOptions `json:"-"`
}

// PublishResult is either a success with PostID or a failure with Error.
type PublishResult struct {
	Success   bool      `json:"success"`
	PostID    string    `json:"post_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Platform  Platform  `json:"platform"`
	// Err keeps the typed failure for callers that branch on kind.
	Err error `json:"-"`
}

// Succeeded builds a successful result. An empty postID turns it into a provider failure.
func Succeeded(platform Platform, postID, url string) *PublishResult {
	if postID == "" {
		return Failed(platform, NewProviderError(platform, "publish", 0, "provider response did not include a post id"))
	}
	return &PublishResult{Success: true, PostID: postID, URL: url, Platform: platform}
}

// Failed builds a failed result from err.
func Failed(platform Platform, err error) *PublishResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindProviderAPI
	}
	return &PublishResult{
		Success:   false,
		Error:     err.Error(),
		ErrorKind: kind,
		Platform:  platform,
		Err:       err,
	}
}

// MediaAsset is a platform-native reference to uploaded media, valid for one publish call.
type MediaAsset struct {
	Platform  Platform `json:"platform"`
	Reference string   `json:"media"`
	Status    string   `json:"status,omitempty"`
	SourceURL string   `json:"source_url,omitempty"`
}

// VerifyResult reports whether an access token is still usable.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UserProfile is the account behind a credential.
type UserProfile struct {
	ID              string                 `json:"id"`
	Username        string                 `json:"username,omitempty"`
	Name            string                 `json:"name,omitempty"`
	ProfileImageURL string                 `json:"profile_image_url,omitempty"`
	FollowersCount  int64                  `json:"followers_count"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

// PostMetrics is the common engagement view of a published post.
type PostMetrics struct {
	PostID      string           `json:"post_id"`
	Platform    Platform         `json:"platform"`
	Likes       int64            `json:"likes"`
	Shares      int64            `json:"shares"`
	Comments    int64            `json:"comments"`
	Impressions int64            `json:"impressions"`
	Engagement  int64            `json:"engagement"`
	Extra       map[string]int64 `json:"extra,omitempty"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// PublishOptions is the per-platform parameter set. Only the option types of this package implement it.
type PublishOptions interface {
	Platform() Platform
	isPublishOptions()
}

type TwitterOptions struct {
	ReplyToTweetID string `json:"reply_to_tweet_id,omitempty"`
}

type LinkedInOptions struct {
	PersonURN  string `json:"person_urn,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

type FacebookOptions struct {
	PageID string `json:"page_id,omitempty"`
}

type InstagramOptions struct {
	InstagramAccountID string `json:"instagram_account_id,omitempty"`
}

type TikTokOptions struct {
	PrivacyLevel   string `json:"privacy_level,omitempty"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableComment bool   `json:"disable_comment"`
	DisableStitch  bool   `json:"disable_stitch"`
	IsAIGC         bool   `json:"is_aigc"`
}

type YouTubeOptions struct {
	Title         string   `json:"title,omitempty"`
	CategoryID    string   `json:"category_id,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	PrivacyStatus string   `json:"privacy_status,omitempty"`
}

func (TwitterOptions) Platform() Platform   { return PlatformTwitter }
func (LinkedInOptions) Platform() Platform  { return PlatformLinkedIn }
func (FacebookOptions) Platform() Platform  { return PlatformFacebook }
func (InstagramOptions) Platform() Platform { return PlatformInstagram }
func (TikTokOptions) Platform() Platform    { return PlatformTikTok }
func (YouTubeOptions) Platform() Platform   { return PlatformYouTube }

func (TwitterOptions) isPublishOptions()   {}
func (LinkedInOptions) isPublishOptions()  {}
func (FacebookOptions) isPublishOptions()  {}
func (InstagramOptions) isPublishOptions() {}
func (TikTokOptions) isPublishOptions()    {}
func (YouTubeOptions) isPublishOptions()   {}

// DecodeOptions parses the JSON options object for platform. Empty input yields the zero options.
func DecodeOptions(platform Platform, raw json.RawMessage) (PublishOptions, error) {
	var target PublishOptions
	switch platform {
	case PlatformTwitter:
		target = &TwitterOptions{}
	case PlatformLinkedIn:
		target = &LinkedInOptions{}
	case PlatformFacebook:
		target = &FacebookOptions{}
	case PlatformInstagram:
		target = &InstagramOptions{}
	case PlatformTikTok:
		target = &TikTokOptions{}
	case PlatformYouTube:
		target = &YouTubeOptions{}
	default:
		return nil, NewInvalidRequestError(platform, "decode_options", fmt.Sprintf("platform %s not supported", platform))
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, NewInvalidRequestError(platform, "decode_options", fmt.Sprintf("invalid options: %v", err))
		}
	}
	return derefOptions(target), nil
}

// derefOptions stores options by value so type switches in publishers only see value types.
func derefOptions(opts PublishOptions) PublishOptions {
	switch o := opts.(type) {
	case *TwitterOptions:
		return *o
	case *LinkedInOptions:
		return *o
	case *FacebookOptions:
		return *o
	case *InstagramOptions:
		return *o
	case *TikTokOptions:
		return *o
	case *YouTubeOptions:
		return *o
	}
	return opts
}

// WithCredentialDefaults fills account identifiers the caller left out from the credential metadata.
func WithCredentialDefaults(platform Platform, opts PublishOptions, cred *PlatformCredential) PublishOptions {
	switch platform {
	case PlatformFacebook:
		o, _ := opts.(FacebookOptions)
		if o.PageID == "" {
			o.PageID = cred.Meta(MetaPageID)
		}
		return o
	case PlatformInstagram:
		o, _ := opts.(InstagramOptions)
		if o.InstagramAccountID == "" {
			o.InstagramAccountID = cred.Meta(MetaInstagramAccountID)
		}
		return o
	case PlatformLinkedIn:
		o, _ := opts.(LinkedInOptions)
		if o.PersonURN == "" {
			o.PersonURN = cred.Meta(MetaPersonURN)
		}
		return o
	case PlatformTwitter:
		o, _ := opts.(TwitterOptions)
		return o
	case PlatformTikTok:
		o, _ := opts.(TikTokOptions)
		return o
	case PlatformYouTube:
		o, _ := opts.(YouTubeOptions)
		return o
	}
	return opts
}
