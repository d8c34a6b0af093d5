package models

import "time"

// ClientProfile is the durable record of a salon client. One profile per
// external chat identity; shared by all of the client's sessions.
type ClientProfile struct {
	ID        string `bson:"id" json:"id"`
	ChatID    string `bson:"chatId" json:"chatId"`
	Username  string `bson:"username,omitempty" json:"username,omitempty"`
	FirstName string `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`

	// Preferences inferred or stated during conversations.
	FavoriteServices   []string          `bson:"favoriteServices,omitempty" json:"favoriteServices,omitempty"`
	FavoriteMasters    []string          `bson:"favoriteMasters,omitempty" json:"favoriteMasters,omitempty"`
	PreferredTimeSlots []string          `bson:"preferredTimeSlots,omitempty" json:"preferredTimeSlots,omitempty"`
	Notes              map[string]string `bson:"notes,omitempty" json:"notes,omitempty"`

	// Visit tracking.
	LastVisit       *time.Time `bson:"lastVisit,omitempty" json:"lastVisit,omitempty"`
	RemindAfterDays int        `bson:"remindAfterDays" json:"remindAfterDays"`
	ReminderOptIn   bool       `bson:"reminderOptIn" json:"reminderOptIn"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName returns the best available human name for prompts and replies.
func (c *ClientProfile) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.Username != "":
		return c.Username
	default:
		return "гость"
	}
}

// ClientFacts is the result of a fact-extraction pass over recent history.
// Fields are merged into the profile, never overwritten.
type ClientFacts struct {
	FavoriteServices   []string          `json:"favorite_services"`
	FavoriteMasters    []string          `json:"favorite_masters"`
	PreferredTimeSlots []string          `json:"preferred_time_slots"`
	Notes              map[string]string `json:"custom_notes"`
}

// MergeFacts unions extracted facts into the profile. Returns true when
// anything actually changed.
func (c *ClientProfile) MergeFacts(f *ClientFacts) bool {
	if f == nil {
		return false
	}
	changed := false
	c.FavoriteServices, changed = mergeUnique(c.FavoriteServices, f.FavoriteServices, changed)
	c.FavoriteMasters, changed = mergeUnique(c.FavoriteMasters, f.FavoriteMasters, changed)
	c.PreferredTimeSlots, changed = mergeUnique(c.PreferredTimeSlots, f.PreferredTimeSlots, changed)
	for k, v := range f.Notes {
		if v == "" {
			continue
		}
		if c.Notes == nil {
			c.Notes = make(map[string]string)
		}
		if c.Notes[k] != v {
			c.Notes[k] = v
			changed = true
		}
	}
	return changed
}

func mergeUnique(dst, src []string, changed bool) ([]string, bool) {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range src {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			dst = append(dst, s)
			seen[s] = struct{}{}
			changed = true
		}
	}
	return dst, changed
}
