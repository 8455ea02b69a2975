package accounts

import "time"

type TitleInput struct {
	TitleID     uint32 `json:"titleId"`
	GoalMinutes int    `json:"goalMinutes"`
}

type AddAccountRequest struct {
	AccountID   string       `json:"accountId"`
	Password    string       `json:"password"`
	DisplayName string       `json:"displayName"`
	Titles      []TitleInput `json:"titles"`
}

type FarmModeRequest struct {
	Mode   string       `json:"mode"`
	Titles []TitleInput `json:"titles"`
}

type TwoFactorRequest struct {
	Code string `json:"code"`
}

type ReloginRequest struct {
	Password string `json:"password"`
}

type TitleView struct {
	TitleID       uint32 `json:"titleId"`
	GoalMinutes   int    `json:"goalMinutes"`
	FarmedMinutes int    `json:"farmedMinutes"`
}

type CompletedGoalView struct {
	TitleID     uint32    `json:"titleId"`
	CompletedAt time.Time `json:"completedAt"`
}

type OwnedTitleView struct {
	TitleID uint32 `json:"titleId"`
	Name    string `json:"name"`
}

type DisplayTitleView struct {
	TitleID  uint32 `json:"titleId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// AccountView is the persisted record merged with live session state, as
// returned by every account-returning endpoint.
type AccountView struct {
	AccountID          string              `json:"accountId"`
	DisplayName        string              `json:"displayName"`
	FarmMode           string              `json:"farmMode"`
	Titles             []TitleView         `json:"titles"`
	CompletedGoals     []CompletedGoalView `json:"completedGoals"`
	OwnedTitles        []OwnedTitleView    `json:"ownedTitles,omitempty"`
	FarmingDisplay     []DisplayTitleView  `json:"farmingDisplay,omitempty"`
	ProfileAvatar      string              `json:"profileAvatar,omitempty"`
	ProfileDisplayName string              `json:"profileDisplayName,omitempty"`
	CredentialInvalid  bool                `json:"credentialInvalid"`
	FarmEnabled        bool                `json:"isFarmEnabled"`
	FarmingOffline     bool                `json:"isFarmingOffline"`
	Farming            bool                `json:"isFarming"`
	Connecting         bool                `json:"isConnecting"`
	NeedsTwoFactor     bool                `json:"needsTwoFactor"`
}

type ListResponse struct {
	Items []AccountView `json:"items"`
}

type ToggleFarmResponse struct {
	Farming bool `json:"isFarming"`
}

type ToggleOfflineResponse struct {
	FarmingOffline bool `json:"isFarmingOffline"`
}

type FetchLibraryResponse struct {
	Count int `json:"count"`
}
