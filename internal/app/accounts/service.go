// Package accounts adapts control-surface requests onto the farm
// coordinator and shapes its snapshots into response DTOs. All domain rules
// live in the coordinator; this layer only validates input and maps types.
package accounts

import (
	"context"

	"hourfarm/internal/farm"
	"hourfarm/internal/store"
)

type Service struct {
	coord *farm.Coordinator
}

func NewService(coord *farm.Coordinator) *Service {
	return &Service{coord: coord}
}

func (s *Service) List() ListResponse {
	snaps := s.coord.Accounts()
	items := make([]AccountView, 0, len(snaps))
	for _, snap := range snaps {
		items = append(items, viewFromSnapshot(snap))
	}
	return ListResponse{Items: items}
}

func (s *Service) Add(req AddAccountRequest) (AccountView, error) {
	acc := store.Account{
		AccountID:   req.AccountID,
		DisplayName: req.DisplayName,
		FarmMode:    store.FarmModeInfinite,
		Titles:      titlesFromInput(req.Titles),
	}
	snap, err := s.coord.AddAccount(acc, req.Password)
	if err != nil {
		return AccountView{}, err
	}
	return viewFromSnapshot(snap), nil
}

func (s *Service) Remove(accountID string) error {
	return s.coord.RemoveAccount(accountID)
}

func (s *Service) SetFarmMode(ctx context.Context, accountID string, req FarmModeRequest) (AccountView, error) {
	snap, err := s.coord.SetFarmMode(ctx, accountID, store.FarmMode(req.Mode), titlesFromInput(req.Titles))
	if err != nil {
		return AccountView{}, err
	}
	return viewFromSnapshot(snap), nil
}

func (s *Service) ToggleFarm(ctx context.Context, accountID string) (ToggleFarmResponse, error) {
	farming, err := s.coord.ToggleFarm(ctx, accountID)
	if err != nil {
		return ToggleFarmResponse{}, err
	}
	return ToggleFarmResponse{Farming: farming}, nil
}

func (s *Service) SubmitTwoFactor(accountID string, req TwoFactorRequest) error {
	return s.coord.SubmitTwoFactor(accountID, req.Code)
}

func (s *Service) Relogin(accountID string, req ReloginRequest) error {
	return s.coord.Relogin(accountID, req.Password)
}

func (s *Service) ToggleOffline(accountID string) (ToggleOfflineResponse, error) {
	offline, err := s.coord.ToggleOffline(accountID)
	if err != nil {
		return ToggleOfflineResponse{}, err
	}
	return ToggleOfflineResponse{FarmingOffline: offline}, nil
}

func (s *Service) FetchLibrary(ctx context.Context, accountID string) (FetchLibraryResponse, error) {
	count, err := s.coord.FetchLibrary(ctx, accountID)
	if err != nil {
		return FetchLibraryResponse{}, err
	}
	return FetchLibraryResponse{Count: count}, nil
}

func titlesFromInput(in []TitleInput) []store.Title {
	out := make([]store.Title, 0, len(in))
	for _, t := range in {
		out = append(out, store.Title{TitleID: t.TitleID, GoalMinutes: t.GoalMinutes})
	}
	return out
}

func viewFromSnapshot(snap farm.Snapshot) AccountView {
	acc := snap.Account
	titles := make([]TitleView, 0, len(acc.Titles))
	for _, t := range acc.Titles {
		titles = append(titles, TitleView{TitleID: t.TitleID, GoalMinutes: t.GoalMinutes, FarmedMinutes: t.FarmedMinutes})
	}
	goals := make([]CompletedGoalView, 0, len(acc.CompletedGoals))
	for _, g := range acc.CompletedGoals {
		goals = append(goals, CompletedGoalView{TitleID: g.TitleID, CompletedAt: g.CompletedAt})
	}
	var owned []OwnedTitleView
	for _, o := range acc.OwnedTitles {
		owned = append(owned, OwnedTitleView{TitleID: o.TitleID, Name: o.Name})
	}
	var display []DisplayTitleView
	for _, d := range acc.FarmingDisplay {
		display = append(display, DisplayTitleView{TitleID: d.TitleID, Name: d.Name, ImageURL: d.ImageURL})
	}
	return AccountView{
		AccountID:          acc.AccountID,
		DisplayName:        acc.DisplayName,
		FarmMode:           string(acc.FarmMode),
		Titles:             titles,
		CompletedGoals:     goals,
		OwnedTitles:        owned,
		FarmingDisplay:     display,
		ProfileAvatar:      acc.ProfileAvatar,
		ProfileDisplayName: acc.ProfileDisplayName,
		CredentialInvalid:  acc.CredentialInvalid,
		FarmEnabled:        acc.FarmEnabled,
		FarmingOffline:     acc.FarmingOffline,
		Farming:            snap.Farming,
		Connecting:         snap.Connecting,
		NeedsTwoFactor:     snap.NeedsTwoFactor,
	}
}
