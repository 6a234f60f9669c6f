package placement

import "github.com/lawnchairsociety/dungeongen/internal/refine"

// Jitter radii, in cells, applied around a placement anchor.
const (
	smallJitter = 2
	largeJitter = 4
)

// family is one group of tiles placed together, selected by catalog tag.
type family struct {
	name   string
	tag    string
	jitter int
	target refine.Target
	// cheat families are all dropped on floor 0 in cheat mode.
	cheat bool
}

// families is the placement order after the entry, wanderers and stairs
// down. Later families see the corridors earlier ones carved.
var families = []family{
	{name: "riddle", tag: "Riddle", jitter: smallJitter, target: refine.TargetHidden},
	{name: "riddle hint", tag: "Riddle Hint", jitter: smallJitter, target: refine.TargetHidden},
	{name: "treasure", tag: "Treasure", jitter: largeJitter, target: refine.TargetRandom, cheat: true},
	{name: "shop", tag: "Market/Other", jitter: largeJitter, target: refine.TargetPath},
	{name: "teleporter", tag: "Teleporter", jitter: largeJitter, target: refine.TargetPath},
	{name: "ability", tag: "Ability Station", jitter: smallJitter, target: refine.TargetRandom},
	{name: "rest", tag: "Rest Point", jitter: smallJitter, target: refine.TargetRandom},
	{name: "resurrection", tag: "Resurrection", jitter: smallJitter, target: refine.TargetRandom},
	{name: "healing", tag: "Healing", jitter: smallJitter, target: refine.TargetRandom},
	{name: "purification", tag: "Purification", jitter: smallJitter, target: refine.TargetRandom},
	{name: "idol", tag: "Idol", jitter: smallJitter, target: refine.TargetHidden},
	{name: "note", tag: "Notes", jitter: smallJitter, target: refine.TargetRandom},
	{name: "movement", tag: "Movement", jitter: smallJitter, target: refine.TargetRandom, cheat: true},
	{name: "battle", tag: "Battle", jitter: smallJitter, target: refine.TargetRandom, cheat: true},
}
