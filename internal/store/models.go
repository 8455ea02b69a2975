package store

import "time"

type FarmMode string

const (
	FarmModeInfinite FarmMode = "infinite"
	FarmModeGoal     FarmMode = "goal"
)

// Title is one tracked game with its goal and accumulated minutes.
type Title struct {
	TitleID       uint32 `json:"titleId"`
	GoalMinutes   int    `json:"goalMinutes"`
	FarmedMinutes int    `json:"farmedMinutes"`
}

// CompletedGoal records the first time a title reached its goal.
type CompletedGoal struct {
	TitleID     uint32    `json:"titleId"`
	CompletedAt time.Time `json:"completedAt"`
}

// OwnedTitle is a cached library entry, populated on demand.
type OwnedTitle struct {
	TitleID uint32 `json:"titleId"`
	Name    string `json:"name"`
}

// DisplayTitle is best-effort catalog metadata for a declared title. UI
// convenience only, never authoritative.
type DisplayTitle struct {
	TitleID  uint32 `json:"titleId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Account is the persisted per-account record. Transient session state
// (connecting, farming, pending challenge) lives in the farm registry and
// is never written to disk.
type Account struct {
	AccountID   string   `json:"accountId"`
	DisplayName string   `json:"displayName"`
	FarmMode    FarmMode `json:"farmMode"`

	Titles         []Title         `json:"titles"`
	CompletedGoals []CompletedGoal `json:"completedGoals,omitempty"`
	OwnedTitles    []OwnedTitle    `json:"ownedTitles,omitempty"`
	FarmingDisplay []DisplayTitle  `json:"farmingDisplay,omitempty"`

	CredentialToken        string `json:"credentialToken,omitempty"`
	CredentialArtifactPath string `json:"credentialArtifactPath,omitempty"`
	CredentialInvalid      bool   `json:"credentialInvalid"`

	ProfileAvatar      string `json:"profileAvatar,omitempty"`
	ProfileDisplayName string `json:"profileDisplayName,omitempty"`

	FarmEnabled    bool `json:"isFarmEnabled"`
	FarmingOffline bool `json:"isFarmingOffline"`
}

// Clone returns a deep copy, safe to hand out across the registry lock.
func (a *Account) Clone() Account {
	out := *a
	out.Titles = append([]Title(nil), a.Titles...)
	out.CompletedGoals = append([]CompletedGoal(nil), a.CompletedGoals...)
	out.OwnedTitles = append([]OwnedTitle(nil), a.OwnedTitles...)
	out.FarmingDisplay = append([]DisplayTitle(nil), a.FarmingDisplay...)
	return out
}
