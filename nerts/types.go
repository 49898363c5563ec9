package nerts

import "nerts-lite/protocol"

type Phase = protocol.Phase

const (
	PhaseLobby = protocol.PhaseLobby
	PhaseIntro = protocol.PhaseIntro
	PhasePlay  = protocol.PhasePlay
	PhaseNerts = protocol.PhaseNerts
)

// Board layout constants. Offsets are relative to the player origin.
const (
	OriginY        int16 = 238
	OriginYFlipped int16 = 1382

	tableStep   int16 = 160
	nertsBand   int16 = 170
	ownerHeight int16 = 700
	ownerWidth  int16 = 1040
)

var (
	drawDownOffset        = Pos(82, 140)
	drawUpOffset          = Pos(248, 140)
	nertsOffset           = Pos(84, 404)
	tableOffset           = Pos(460, 404)
	drawDownOffsetFlipped = Pos(940, 446)
	drawUpOffsetFlipped   = Pos(774, 446)
	nertsOffsetFlipped    = Pos(938, 182)
	tableOffsetFlipped    = Pos(564, 182)

	tableBoxSize = Pos(1, 700)
	// table piles grow down the board for the near side, up for the far side
	tableBoxLift        = Pos(0, 600)
	tableBoxLiftFlipped = Pos(0, 10)
)

// MinTablePiles returns the tableau size the game deals for active players.
func MinTablePiles(active int) int {
	switch {
	case active <= 2:
		return 6
	case active == 3:
		return 5
	default:
		return 4
	}
}

// MinCenterSlots is the number of shared foundation slots per active player.
const MinCenterSlots = 4
