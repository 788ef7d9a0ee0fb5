package game

import (
	"sort"

	"github.com/partyrush/backend/internal/domain"
)

// ComputeLeaderboard ranks players by final score descending, breaking ties
// on total score descending, then on earliest join. Ranks are strictly
// sequential: two players never share a rank.
func ComputeLeaderboard(players []domain.Player) []domain.LeaderboardEntry {
	ranked := make([]domain.Player, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if a.FinalScore() != b.FinalScore() {
			return a.FinalScore() > b.FinalScore()
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	entries := make([]domain.LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = domain.LeaderboardEntry{
			Rank:         i + 1,
			PlayerID:     p.ID,
			Name:         p.Name,
			TotalScore:   p.TotalScore,
			BonusScore:   p.BonusScore,
			FinalScore:   p.FinalScore(),
			CurrentLevel: p.CurrentLevel,
			Status:       p.Status,
		}
	}
	return entries
}
