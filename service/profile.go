package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"lingomate/models"
	"lingomate/presence"
	"lingomate/storage"
)

const MaxAvatarSize = 2 << 20

var (
	languageCode = regexp.MustCompile(`^[a-z]{2,3}$`)
	clockTime    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	avatarTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

type ProfileService struct {
	store    UserStore
	storage  storage.Storage
	presence *presence.Syncer
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfileService(store UserStore, st storage.Storage, sync *presence.Syncer, logger *slog.Logger) *ProfileService {
	return &ProfileService{store: store, storage: st, presence: sync, logger: logger, now: time.Now}
}

// CompleteProfile validates the onboarding payload, stores it and marks the
// profile as complete. An empty ProfilePic keeps the current picture.
func (s *ProfileService) CompleteProfile(ctx context.Context, userID string, in models.ProfileUpdate) (*models.User, error) {
	in = trimProfile(in)
	if err := ValidateProfile(in); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProfile(ctx, userID, in, s.now().UTC()); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile completed", "user_id", userID)

	s.presence.Sync(presence.Identity{ID: u.ID, Name: u.FullName, Image: u.ProfilePic})
	return u.Sanitized(), nil
}

// UploadAvatar stores an image of at most MaxAvatarSize bytes and makes it
// the user's profile picture.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, r io.Reader) (*models.User, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("Avatar file is empty.")
	}
	if len(data) > MaxAvatarSize {
		return nil, models.NewValidationError("Avatar must be 2MB or smaller.")
	}

	contentType := http.DetectContentType(data)
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, models.NewValidationError("Avatar must be a JPEG, PNG, GIF or WebP image.")
	}

	url, err := s.storage.Save(ctx, uuid.NewString()+ext, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.store.SetProfilePic(ctx, userID, url, s.now().UTC()); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.presence.Sync(presence.Identity{ID: u.ID, Name: u.FullName, Image: u.ProfilePic})
	return u.Sanitized(), nil
}

func trimProfile(in models.ProfileUpdate) models.ProfileUpdate {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Bio = strings.TrimSpace(in.Bio)
	in.NativeLanguage = strings.ToLower(strings.TrimSpace(in.NativeLanguage))
	in.TimeZone = strings.TrimSpace(in.TimeZone)
	in.Location = strings.TrimSpace(in.Location)
	in.ProfilePic = strings.TrimSpace(in.ProfilePic)
	for i := range in.LearningLanguages {
		in.LearningLanguages[i].Code = strings.ToLower(strings.TrimSpace(in.LearningLanguages[i].Code))
	}
	return in
}

// ValidateProfile reports missing required fields first, in a fixed order,
// and only then checks the shape of each field.
func ValidateProfile(in models.ProfileUpdate) error {
	var missing []string
	if in.FullName == "" {
		missing = append(missing, "fullName")
	}
	if in.Bio == "" {
		missing = append(missing, "bio")
	}
	if in.NativeLanguage == "" {
		missing = append(missing, "nativeLanguage")
	}
	if len(in.LearningLanguages) == 0 {
		missing = append(missing, "learningLanguages")
	}
	if in.TimeZone == "" {
		missing = append(missing, "timeZone")
	}
	if len(in.Availability) == 0 {
		missing = append(missing, "availability")
	}
	if in.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return models.NewMissingFieldsError("All fields are required.", missing)
	}

	fields := map[string]string{}
	if !languageCode.MatchString(in.NativeLanguage) {
		fields["nativeLanguage"] = "must be an ISO 639 language code"
	}
	for i, l := range in.LearningLanguages {
		key := fmt.Sprintf("learningLanguages[%d]", i)
		switch {
		case !languageCode.MatchString(l.Code):
			fields[key+".code"] = "must be an ISO 639 language code"
		case !l.Level.Valid():
			fields[key+".level"] = "must be one of beginner, intermediate, advanced, native"
		}
	}
	if _, err := time.LoadLocation(in.TimeZone); err != nil || in.TimeZone == "Local" {
		fields["timeZone"] = "must be an IANA time zone name"
	}
	for i, slot := range in.Availability {
		key := fmt.Sprintf("availability[%d]", i)
		if !isWeekday(slot.DayOfWeek) {
			fields[key+".dayOfWeek"] = "must be one of Mon, Tue, Wed, Thu, Fri, Sat, Sun"
			continue
		}
		if !clockTime.MatchString(slot.From) || !clockTime.MatchString(slot.To) {
			fields[key] = "from and to must be HH:MM"
			continue
		}
		if slot.From >= slot.To {
			fields[key] = "from must be before to"
		}
	}
	if len(fields) > 0 {
		return models.NewFieldErrors("Invalid profile fields.", fields)
	}
	return nil
}

func isWeekday(day string) bool {
	return slices.Contains(models.Weekdays, day)
}
