// Package pseudonym issues display names and magic codes for anonymous users.
package pseudonym

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
)

var adjectives = []string{
	"Ancient", "Azure", "Blazing", "Brave", "Bright", "Broken", "Burning", "Calm", "Celestial", "Crimson",
	"Crystal", "Dark", "Deep", "Dire", "Distant", "Divine", "Dream", "Echoing", "Elder", "Electric",
	"Emerald", "Eternal", "Fallen", "Fiery", "Forest", "Frozen", "Gentle", "Golden", "Grand", "Grave",
	"Great", "Green", "Grim", "Hallowed", "Hidden", "High", "Hollow", "Holy", "Honest", "Humble",
	"Iron", "Jade", "Keen", "Kindred", "Luminous", "Lunar", "Mighty", "Mystic", "Noble", "Northern",
	"Onyx", "Pale", "Phantom", "Proud", "Pure", "Quiet", "Radiant", "Rapid", "Red", "Regal",
	"Runic", "Sacred", "Savage", "Shadow", "Silent", "Silver", "Soaring", "Solar", "Solid", "Southern",
	"Spectral", "Spirit", "Star", "Steel", "Stone", "Storm", "Swift", "Thundering", "Timeless", "Twilight",
	"Unseen", "Valiant", "Vengeful", "Vivid", "Whispering", "Wild", "Wind", "Winter", "Wise", "Woven",
	"Young", "Zealous",
}

var nouns = []string{
	"Aegis", "Anchor", "Ash", "Blade", "Blaze", "Bloom", "Breeze", "Bridge", "Brook", "Canyon",
	"Cinder", "Cloud", "Coast", "Crag", "Crest", "Crown", "Dawn", "Defender", "Dragon", "Dreamer",
	"Drift", "Dusk", "Eagle", "Echo", "Edge", "Falcon", "Fang", "Feather", "Fell", "Field",
	"Flame", "Flare", "Fleet", "Flower", "Forest", "Forge", "Gale", "Gate", "Glade", "Glimmer",
	"Gorge", "Guard", "Haven", "Hawk", "Heart", "Helm", "Hero", "Hill", "Horizon", "Hunter",
	"Iron", "Island", "Jade", "Keeper", "Knight", "Lake", "Lance", "Light", "Lion", "Loom",
	"Lore", "Marsh", "Meadow", "Mist", "Moon", "Moor", "Mountain", "Nest", "Night", "Oak",
	"Oasis", "Ocean", "Peak", "Pine", "Pillar", "Pond", "Port", "Quill", "Raven", "Reach",
	"Ridge", "River", "Rock", "Rose", "Rune", "Saber", "Sage", "Sentinel", "Shadow", "Shield",
	"Shore", "Sky", "Snake", "Song", "Spark", "Spear", "Spirit", "Star", "Steel", "Stone",
	"Storm", "Stream", "Sun", "Thorn", "Throne", "Thunder", "Tower", "Trail", "Tree", "Valley",
	"Vanguard", "Veil", "Venture", "Viper", "Vision", "Warden", "Watcher", "Wave", "Whisper", "Wild",
	"Willow", "Wind", "Wing", "Wolf", "Wood", "Wyrm", "Path", "Pioneer", "Planet", "Pulse",
	"Pyre", "Quest", "Rain", "Realm", "Rebel", "Rider", "Ring", "Sail", "Scale", "Scout",
	"Sea", "Seeker", "Serpent", "Shard", "Smoke", "Snow", "Spire", "Sprite", "Starfall", "Summer",
	"Sword", "Talon", "Tempest", "Tide", "Tiger", "Titan", "Tome", "Torch", "Traveler", "Valor",
	"Voyager", "Wanderer", "Warrior", "Weaver", "Whirlwind", "Zephyr",
}

// Name returns a random adjective+noun display name such as "SilentRaven".
func Name() string {
	return adjectives[mrand.IntN(len(adjectives))] + nouns[mrand.IntN(len(nouns))]
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// MagicCode returns a random capability token of length n drawn from [a-z0-9].
func MagicCode(n int) (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[v.Int64()]
	}
	return string(b), nil
}
