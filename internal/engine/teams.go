package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"huntline/internal/domain"
	"huntline/internal/events"
)

const (
	minTeamsPerHunt        = 1
	defaultMaxTeamsPerHunt = 10
)

func (e Engine) maxTeams() int {
	if e.MaxTeams > 0 {
		return e.MaxTeams
	}
	return defaultMaxTeamsPerHunt
}

func (e Engine) CreateTeam(ctx context.Context, teamName, startedHuntID string) (domain.Team, error) {
	if strings.TrimSpace(teamName) == "" {
		return domain.Team{}, ValidationError{Msg: "team name must be non-empty"}
	}
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return domain.Team{}, err
	}
	team := domain.Team{
		ID:            uuid.NewString(),
		TeamName:      teamName,
		StartedHuntID: startedHuntID,
	}
	if err := e.Repo.InsertTeam(ctx, team); err != nil {
		return domain.Team{}, err
	}
	e.logEvent(ctx, "team.created", "team", team.ID, events.EventPayload{
		"startedHuntId": startedHuntID,
	})
	return team, nil
}

// CreateTeams bulk-creates numTeams teams named "Team 0" through
// "Team N-1" for a session. All of them are inserted with a single
// statement, so a failure creates none.
func (e Engine) CreateTeams(ctx context.Context, startedHuntID string, numTeams int) ([]domain.Team, error) {
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return nil, err
	}
	if numTeams < minTeamsPerHunt || numTeams > e.maxTeams() {
		return nil, ValidationError{Msg: fmt.Sprintf("number of teams must be between %d and %d", minTeamsPerHunt, e.maxTeams())}
	}
	teams := make([]domain.Team, 0, numTeams)
	for i := 0; i < numTeams; i++ {
		teams = append(teams, domain.Team{
			ID:            uuid.NewString(),
			TeamName:      fmt.Sprintf("Team %d", i),
			StartedHuntID: startedHuntID,
		})
	}
	if err := e.Repo.InsertTeams(ctx, teams); err != nil {
		return nil, err
	}
	e.logEvent(ctx, "teams.created", "started_hunt", startedHuntID, events.EventPayload{
		"count": numTeams,
	})
	return teams, nil
}

func (e Engine) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	if err := requireID(id, "team"); err != nil {
		return domain.Team{}, err
	}
	return e.Repo.GetTeam(ctx, id)
}

func (e Engine) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return e.Repo.ListTeams(ctx)
}

func (e Engine) ListTeamsByStartedHunt(ctx context.Context, startedHuntID string) ([]domain.Team, error) {
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return nil, err
	}
	return e.Repo.ListTeamsByStartedHunt(ctx, startedHuntID)
}

func (e Engine) DeleteTeam(ctx context.Context, id string) error {
	if err := requireID(id, "team"); err != nil {
		return err
	}
	if err := e.Repo.DeleteTeam(ctx, id); err != nil {
		return err
	}
	e.logEvent(ctx, "team.deleted", "team", id, nil)
	return nil
}
