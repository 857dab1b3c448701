package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type ProficiencyLevel string

const (
	LevelBeginner     ProficiencyLevel = "beginner"
	LevelIntermediate ProficiencyLevel = "intermediate"
	LevelAdvanced     ProficiencyLevel = "advanced"
	LevelNative       ProficiencyLevel = "native"
)

func (l ProficiencyLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelNative:
		return true
	}
	return false
}

var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type LearningLanguage struct {
	Code          string           `json:"code"`
	Level         ProficiencyLevel `json:"level"`
	LearningSince *Date            `json:"learningSince,omitempty"`
}

// Date is a calendar day. It decodes from "2006-01-02" or RFC 3339 and
// encodes as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// DateError reports a value that is not a calendar date.
type DateError struct {
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: want YYYY-MM-DD", e.Value)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return &DateError{Value: s}
		}
	}
	y, m, day := t.Date()
	d.Time = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return nil
}

type AvailabilitySlot struct {
	DayOfWeek string `json:"dayOfWeek"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type Streak struct {
	Count      int        `json:"count"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

// User is the stored account. Password holds the bcrypt hash and is never
// serialized.
type User struct {
	ID                  string             `json:"id"`
	FullName            string             `json:"fullName"`
	Email               string             `json:"email"`
	Password            string             `json:"-"`
	Bio                 string             `json:"bio"`
	ProfilePic          string             `json:"profilePic"`
	NativeLanguage      string             `json:"nativeLanguage"`
	LearningLanguages   []LearningLanguage `json:"learningLanguages"`
	TimeZone            string             `json:"timeZone"`
	Availability        []AvailabilitySlot `json:"availability"`
	Location            string             `json:"location"`
	HasCompletedProfile bool               `json:"hasCompletedProfile"`
	Friends             []string           `json:"friends"`
	BlockedUsers        []string           `json:"blockedUsers"`
	Streak              Streak             `json:"streak"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func (u *User) IsFriend(userID string) bool {
	return slices.Contains(u.Friends, userID)
}

func (u *User) HasBlocked(userID string) bool {
	return slices.Contains(u.BlockedUsers, userID)
}

// Sanitized returns a copy safe to hand to handlers: credential fields are
// cleared and nil slices become empty so they encode as [].
func (u *User) Sanitized() *User {
	out := *u
	out.Password = ""
	if out.LearningLanguages == nil {
		out.LearningLanguages = []LearningLanguage{}
	}
	if out.Availability == nil {
		out.Availability = []AvailabilitySlot{}
	}
	if out.Friends == nil {
		out.Friends = []string{}
	}
	if out.BlockedUsers == nil {
		out.BlockedUsers = []string{}
	}
	return &out
}

// PublicProfile is the subset of a user shown to other users.
type PublicProfile struct {
	ID                string             `json:"id"`
	FullName          string             `json:"fullName"`
	ProfilePic        string             `json:"profilePic"`
	NativeLanguage    string             `json:"nativeLanguage"`
	LearningLanguages []LearningLanguage `json:"learningLanguages"`
}

func (u *User) ToPublic() PublicProfile {
	langs := u.LearningLanguages
	if langs == nil {
		langs = []LearningLanguage{}
	}
	return PublicProfile{
		ID:                u.ID,
		FullName:          u.FullName,
		ProfilePic:        u.ProfilePic,
		NativeLanguage:    u.NativeLanguage,
		LearningLanguages: langs,
	}
}

// CandidateProfile is what the partner listing shows about another user.
// Credentials and relationship sets are left out.
type CandidateProfile struct {
	PublicProfile
	Bio          string             `json:"bio"`
	Location     string             `json:"location"`
	TimeZone     string             `json:"timeZone"`
	Availability []AvailabilitySlot `json:"availability"`
}

func (u *User) ToCandidate() CandidateProfile {
	slots := u.Availability
	if slots == nil {
		slots = []AvailabilitySlot{}
	}
	return CandidateProfile{
		PublicProfile: u.ToPublic(),
		Bio:           u.Bio,
		Location:      u.Location,
		TimeZone:      u.TimeZone,
		Availability:  slots,
	}
}

// ProfileUpdate is the allow-listed set of fields a user may change when
// completing their profile.
type ProfileUpdate struct {
	FullName          string             `json:"fullName"`
	Bio               string             `json:"bio"`
	NativeLanguage    string             `json:"nativeLanguage"`
	LearningLanguages []LearningLanguage `json:"learningLanguages"`
	TimeZone          string             `json:"timeZone"`
	Availability      []AvailabilitySlot `json:"availability"`
	Location          string             `json:"location"`
	ProfilePic        string             `json:"profilePic"`
}
