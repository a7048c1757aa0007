package domain

// RarityTier is the categorical weight class assigned at generation time.
type RarityTier string

const (
	RarityCommon    RarityTier = "common"
	RarityUncommon  RarityTier = "uncommon"
	RarityRare      RarityTier = "rare"
	RarityEpic      RarityTier = "epic"
	RarityLegendary RarityTier = "legendary"
)

// RarityWeights is the fixed distribution the generator draws from,
// in permille.
var RarityWeights = []struct {
	Tier   RarityTier
	Weight int
}{
	{RarityCommon, 600},
	{RarityUncommon, 250},
	{RarityRare, 100},
	{RarityEpic, 40},
	{RarityLegendary, 10},
}

// DrawRarity maps a roll in [0,1000) onto a tier per RarityWeights.
func DrawRarity(roll int) RarityTier {
	acc := 0
	for _, w := range RarityWeights {
		acc += w.Weight
		if roll < acc {
			return w.Tier
		}
	}
	return RarityCommon
}
