package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLeaderboard(t *testing.T, f *fixture) (alice, bob, carol *model.User) {
	t.Helper()
	alice = f.users.Put(model.User{Username: "alice", XP: 100})
	bob = f.users.Put(model.User{Username: "bob", XP: 900})
	carol = f.users.Put(model.User{Username: "carol", XP: 500})
	return
}

func TestLeaderboardTop_Live(t *testing.T) {
	f := newFixture(t, testNow)
	alice, bob, _ := seedLeaderboard(t, f)
	ctx := context.Background()

	require.NoError(t, f.scores.Incr(ctx, "2026-10", alice.ID, 300))
	require.NoError(t, f.scores.Incr(ctx, "2026-10", bob.ID, 120))

	view, err := f.leaderboard.Top(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-10", view.Season)
	assert.Equal(t, SourceLive, view.Source)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "alice", view.Entries[0].Username)
	assert.Equal(t, 1, view.Entries[0].Rank)
	assert.Equal(t, "bob", view.Entries[1].Username)
}

func TestLeaderboardTop_FallsBackToXP(t *testing.T) {
	f := newFixture(t, testNow)
	seedLeaderboard(t, f)

	// 本赛季还没有人得分
	view, err := f.leaderboard.Top(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceXP, view.Source)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "bob", view.Entries[0].Username)
	assert.Equal(t, int64(900), view.Entries[0].Score)
	assert.Equal(t, "carol", view.Entries[1].Username)

	// Redis 不可用
	f.scores.Err = errors.New("connection refused")
	view, err = f.leaderboard.Top(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceXP, view.Source)
}

func TestLeaderboardTop_PastSeason(t *testing.T) {
	f := newFixture(t, testNow)
	alice, bob, _ := seedLeaderboard(t, f)
	ctx := context.Background()

	view, err := f.leaderboard.Top(ctx, "2026-08", 10)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	assert.Empty(t, view.Entries)

	require.NoError(t, f.scores.Incr(ctx, "2026-09", bob.ID, 50))
	require.NoError(t, f.scores.Incr(ctx, "2026-09", alice.ID, 80))

	n, err := f.leaderboard.Snapshot(ctx, f.leaderboard.PreviousSeason())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	has, err := f.leaderboard.HasSnapshot("2026-09")
	require.NoError(t, err)
	assert.True(t, has)

	view, err = f.leaderboard.Top(ctx, "2026-09", 10)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "alice", view.Entries[0].Username)

	entry, err := f.leaderboard.Me(ctx, bob.ID, "2026-09")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Rank)
	assert.Equal(t, "bob", entry.Username)
}

func TestLeaderboardMe(t *testing.T) {
	f := newFixture(t, testNow)
	alice, bob, _ := seedLeaderboard(t, f)
	ctx := context.Background()
	require.NoError(t, f.scores.Incr(ctx, "2026-10", alice.ID, 10))

	entry, err := f.leaderboard.Me(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Rank)
	assert.Equal(t, int64(10), entry.Score)
	assert.Equal(t, "alice", entry.Username)

	entry, err = f.leaderboard.Me(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Rank)
	assert.Equal(t, "bob", entry.Username)

	_, err = f.leaderboard.Me(ctx, bob.ID, "2026/10")
	assert.ErrorIs(t, err, util.ErrInvalidSeason)
}

func TestLeaderboardSeasons(t *testing.T) {
	f := newFixture(t, time.Date(2026, 1, 5, 0, 30, 0, 0, time.UTC))
	assert.Equal(t, "2026-01", f.leaderboard.CurrentSeason())
	assert.Equal(t, "2025-12", f.leaderboard.PreviousSeason())

	_, err := f.leaderboard.ResolveSeason("2026-13")
	assert.ErrorIs(t, err, util.ErrInvalidSeason)
	season, err := f.leaderboard.ResolveSeason("2025-07")
	require.NoError(t, err)
	assert.Equal(t, "2025-07", season)
}

func TestLeaderboardTop_LimitClamp(t *testing.T) {
	f := newFixture(t, testNow)
	for i := 0; i < util.MaxLimit+5; i++ {
		f.users.Put(model.User{Username: "u", XP: int64(i)})
	}
	view, err := f.leaderboard.Top(context.Background(), "", 1000)
	require.NoError(t, err)
	assert.Len(t, view.Entries, util.MaxLimit)
}
