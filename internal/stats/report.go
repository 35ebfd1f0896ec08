package stats

import (
	"context"

	"github.com/verte-zerg/lyritype/internal/model"
)

// Source is the read side of session persistence.
type Source interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
	ListCharAggregatesForSessions(ctx context.Context, sessionIDs []int64) ([]model.CharAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	CharAggsAll      []model.CharAggregate
	CharAggsWindow   []model.CharAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	sessions, err := src.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	charAggsAll, err := src.ListCharAggregatesForSessions(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	charAggsWindow, err := src.ListCharAggregatesForSessions(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		CharAggsAll:      charAggsAll,
		CharAggsWindow:   charAggsWindow,
	}, nil
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
