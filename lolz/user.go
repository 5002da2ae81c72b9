package lolz

import (
	"context"
	"time"
)

// User represents the authenticated forum profile
type User struct {
	UserID                      int64           `json:"user_id"`
	Username                    string          `json:"username"`
	UserMessageCount            int             `json:"user_message_count"`
	UserRegisterDate            int64           `json:"user_register_date"`
	UserLikeCount               int             `json:"user_like_count"`
	ShortLink                   string          `json:"short_link"`
	UserEmail                   string          `json:"user_email"`
	UserUnreadNotificationCount int             `json:"user_unread_notification_count"`
	UserDobDay                  int             `json:"user_dob_day"`
	UserDobMonth                int             `json:"user_dob_month"`
	UserDobYear                 int             `json:"user_dob_year"`
	UserTitle                   string          `json:"user_title"`
	UserIsValid                 bool            `json:"user_is_valid"`
	UserIsVerified              bool            `json:"user_is_verified"`
	UserIsFollowed              bool            `json:"user_is_followed"`
	UserLastSeenDate            int64           `json:"user_last_seen_date"`
	Links                       Links           `json:"links"`
	Permissions                 Permissions     `json:"permissions"`
	UserIsIgnored               bool            `json:"user_is_ignored"`
	UserIsVisitor               bool            `json:"user_is_visitor"`
	UserTimezoneOffset          int             `json:"user_timezone_offset"`
	UserHasPassword             bool            `json:"user_has_password"`
	Fields                      []Field         `json:"fields"`
	UserGroups                  []Group         `json:"user_groups"`
	SelfPermissions             SelfPermissions `json:"self_permissions"`
	EditPermissions             EditPermissions `json:"edit_permissions"`
}

// Registered returns the registration time
func (u *User) Registered() time.Time {
	return unixTime(u.UserRegisterDate)
}

// LastSeen returns the last activity time
func (u *User) LastSeen() time.Time {
	return unixTime(u.UserLastSeenDate)
}

// PrimaryGroup returns the user's primary group, if listed
func (u *User) PrimaryGroup() *Group {
	for i := range u.UserGroups {
		if u.UserGroups[i].IsPrimaryGroup {
			return &u.UserGroups[i]
		}
	}
	return nil
}

// Links holds profile URLs
type Links struct {
	Permalink   string `json:"permalink"`
	Detail      string `json:"detail"`
	Avatar      string `json:"avatar"`
	AvatarBig   string `json:"avatar_big"`
	AvatarSmall string `json:"avatar_small"`
	Followers   string `json:"followers"`
	Followings  string `json:"followings"`
	Ignore      string `json:"ignore"`
	Timeline    string `json:"timeline"`
}

// Permissions are the viewer's permissions on the profile
type Permissions struct {
	Edit        bool `json:"edit"`
	Follow      bool `json:"follow"`
	Ignore      bool `json:"ignore"`
	ProfilePost bool `json:"profile_post"`
}

// Field is a custom profile field
type Field struct {
	ID            FlexString `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Position      string     `json:"position"`
	IsRequired    bool       `json:"is_required"`
	Value         FlexString `json:"value"`
	IsMultiChoice bool       `json:"is_multi_choice"`
}

// Group is a user group membership
type Group struct {
	UserGroupID    int64  `json:"user_group_id"`
	UserGroupTitle string `json:"user_group_title"`
	IsPrimaryGroup bool   `json:"is_primary_group"`
}

// SelfPermissions are permissions the user holds on their own account
type SelfPermissions struct {
	CreateConversation           bool `json:"create_conversation"`
	UploadAttachmentConversation bool `json:"upload_attachment_conversation"`
}

// EditPermissions lists profile fields the user may edit
type EditPermissions struct {
	Password          bool `json:"password"`
	UserEmail         bool `json:"user_email"`
	Username          bool `json:"username"`
	UserTitle         bool `json:"user_title"`
	PrimaryGroupID    bool `json:"primary_group_id"`
	SecondaryGroupIDs bool `json:"secondary_group_ids"`
	UserDobDay        bool `json:"user_dob_day"`
	UserDobMonth      bool `json:"user_dob_month"`
	UserDobYear       bool `json:"user_dob_year"`
	Fields            bool `json:"fields"`
}

type meResponse struct {
	User *User `json:"user"`
}

// Me returns the profile of the authenticated user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp meResponse
	if err := c.get(ctx, "users/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, ErrUnexpectedResponse
	}
	return resp.User, nil
}

func unixTime(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
