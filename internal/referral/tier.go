package referral

// Tier is one referral-count bracket. A tier covers counts from Min up to the
// next tier's Min minus one.
type Tier struct {
	Level        int
	Min          int
	BonusPercent int
}

// Tiers is the reward ladder, ordered by Min.
var Tiers = []Tier{
	{Level: 1, Min: 0, BonusPercent: 0},
	{Level: 2, Min: 3, BonusPercent: 5},
	{Level: 3, Min: 10, BonusPercent: 10},
	{Level: 4, Min: 20, BonusPercent: 15},
	{Level: 5, Min: 50, BonusPercent: 20},
}

// Standing is a user's position on the ladder.
type Standing struct {
	Tier            int     `json:"tier"`
	BonusPercent    int     `json:"bonus_percent"`
	NextTierAt      int     `json:"next_tier_at"`
	ProgressPercent float64 `json:"progress_percent"`
}

// ComputeTier maps a referral count to its standing. Negative counts are
// treated as zero. On the top tier NextTierAt is the count itself and
// progress is 100.
func ComputeTier(referralCount int) Standing {
	if referralCount < 0 {
		referralCount = 0
	}

	idx := 0
	for i, t := range Tiers {
		if referralCount >= t.Min {
			idx = i
		}
	}
	current := Tiers[idx]

	if idx == len(Tiers)-1 {
		return Standing{
			Tier:            current.Level,
			BonusPercent:    current.BonusPercent,
			NextTierAt:      referralCount,
			ProgressPercent: 100,
		}
	}

	next := Tiers[idx+1]
	progress := float64(referralCount-current.Min) / float64(next.Min-current.Min) * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return Standing{
		Tier:            current.Level,
		BonusPercent:    current.BonusPercent,
		NextTierAt:      next.Min,
		ProgressPercent: progress,
	}
}
