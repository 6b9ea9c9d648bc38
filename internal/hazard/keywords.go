package hazard

// DefaultKeywords returns the built-in keyword table, most urgent first.
func DefaultKeywords() []Keyword {
	return []Keyword{
		// Critical.
		{Word: "fire", Priority: PriorityCritical, Label: "fire detected - move away immediately", Emoji: "🔥"},
		{Word: "flame", Priority: PriorityCritical, Label: "fire detected - move away immediately", Emoji: "🔥"},
		{Word: "flames", Priority: PriorityCritical, Label: "fire detected - move away immediately", Emoji: "🔥"},
		{Word: "burning", Priority: PriorityCritical, Label: "fire detected - move away immediately", Emoji: "🔥"},
		{Word: "smoke", Priority: PriorityCritical, Label: "smoke detected - possible fire nearby", Emoji: "💨"},
		{Word: "explosion", Priority: PriorityCritical, Label: "explosion risk - move away", Emoji: "💥"},
		{Word: "electric", Priority: PriorityCritical, Label: "electrical hazard nearby", Emoji: "⚡"},
		{Word: "electrical", Priority: PriorityCritical, Label: "electrical hazard nearby", Emoji: "⚡"},
		{Word: "sparks", Priority: PriorityCritical, Label: "electrical sparks - do not touch", Emoji: "⚡"},
		{Word: "chemical", Priority: PriorityCritical, Label: "chemical hazard nearby", Emoji: "☣️"},
		{Word: "toxic", Priority: PriorityCritical, Label: "toxic material nearby", Emoji: "☣️"},
		{Word: "gun", Priority: PriorityCritical, Label: "weapon detected nearby", Emoji: "🚨"},
		{Word: "weapon", Priority: PriorityCritical, Label: "weapon detected nearby", Emoji: "🚨"},
		{Word: "knife", Priority: PriorityCritical, Label: "sharp weapon nearby", Emoji: "🚨"},
		{Word: "flood", Priority: PriorityCritical, Label: "flooding detected - avoid area", Emoji: "🌊"},
		{Word: "flooded", Priority: PriorityCritical, Label: "flooding detected - avoid area", Emoji: "🌊"},

		// Serious.
		{Word: "car", Priority: PrioritySerious, Label: "vehicle nearby - stop and wait", Emoji: "🚗"},
		{Word: "truck", Priority: PrioritySerious, Label: "large vehicle nearby", Emoji: "🚛"},
		{Word: "bus", Priority: PrioritySerious, Label: "bus nearby - stop and wait", Emoji: "🚌"},
		{Word: "van", Priority: PrioritySerious, Label: "vehicle nearby - stop and wait", Emoji: "🚗"},
		{Word: "motorcycle", Priority: PrioritySerious, Label: "motorcycle nearby - be careful", Emoji: "🏍️"},
		{Word: "motorbike", Priority: PrioritySerious, Label: "motorcycle nearby - be careful", Emoji: "🏍️"},
		{Word: "vehicle", Priority: PrioritySerious, Label: "vehicle nearby - stop and wait", Emoji: "🚗"},
		{Word: "traffic", Priority: PrioritySerious, Label: "traffic ahead - do not cross", Emoji: "🚦"},
		{Word: "road", Priority: PrioritySerious, Label: "road ahead - watch for vehicles", Emoji: "🛣️"},
		{Word: "street", Priority: PrioritySerious, Label: "street ahead - watch for traffic", Emoji: "🛣️"},
		{Word: "train", Priority: PrioritySerious, Label: "train nearby - stay clear of tracks", Emoji: "🚆"},
		{Word: "track", Priority: PrioritySerious, Label: "train track - cross carefully", Emoji: "🚆"},
		{Word: "crowd", Priority: PrioritySerious, Label: "crowd ahead - move carefully", Emoji: "👥"},

		// High.
		{Word: "stair", Priority: PriorityHigh, Label: "stairs ahead - hold the railing", Emoji: "🪜"},
		{Word: "stairs", Priority: PriorityHigh, Label: "stairs ahead - hold the railing", Emoji: "🪜"},
		{Word: "staircase", Priority: PriorityHigh, Label: "staircase ahead - hold the railing", Emoji: "🪜"},
		{Word: "stairway", Priority: PriorityHigh, Label: "stairway ahead - hold the railing", Emoji: "🪜"},
		{Word: "step", Priority: PriorityHigh, Label: "step ahead - watch your footing", Emoji: "⚠️"},
		{Word: "steps", Priority: PriorityHigh, Label: "steps ahead - watch your footing", Emoji: "⚠️"},
		{Word: "escalator", Priority: PriorityHigh, Label: "escalator ahead - hold the railing", Emoji: "🪜"},
		{Word: "ladder", Priority: PriorityHigh, Label: "ladder nearby - be careful", Emoji: "🪜"},
		{Word: "ramp", Priority: PriorityHigh, Label: "ramp ahead - uneven surface", Emoji: "⚠️"},
		{Word: "cliff", Priority: PriorityHigh, Label: "drop ahead - stay back", Emoji: "🏔️"},
		{Word: "ledge", Priority: PriorityHigh, Label: "ledge ahead - stay back", Emoji: "⚠️"},
		{Word: "drop", Priority: PriorityHigh, Label: "drop ahead - stay back", Emoji: "⚠️"},
		{Word: "pit", Priority: PriorityHigh, Label: "pit ahead - do not step forward", Emoji: "⚠️"},
		{Word: "hole", Priority: PriorityHigh, Label: "hole in floor - do not step", Emoji: "⚠️"},
		{Word: "gap", Priority: PriorityHigh, Label: "gap ahead - do not step", Emoji: "⚠️"},
		{Word: "ditch", Priority: PriorityHigh, Label: "ditch ahead - step carefully", Emoji: "⚠️"},
		{Word: "manhole", Priority: PriorityHigh, Label: "manhole ahead - avoid", Emoji: "⚠️"},
		{Word: "wet", Priority: PriorityHigh, Label: "wet surface - slip risk", Emoji: "💧"},
		{Word: "slippery", Priority: PriorityHigh, Label: "slippery surface - slow down", Emoji: "💧"},
		{Word: "puddle", Priority: PriorityHigh, Label: "puddle on ground", Emoji: "💧"},
		{Word: "spill", Priority: PriorityHigh, Label: "spill on floor - slip risk", Emoji: "💧"},
		{Word: "ice", Priority: PriorityHigh, Label: "ice on ground - slip risk", Emoji: "🧊"},
		{Word: "icy", Priority: PriorityHigh, Label: "icy surface - slip risk", Emoji: "🧊"},
		{Word: "snow", Priority: PriorityHigh, Label: "snow on ground - slippery", Emoji: "❄️"},
		{Word: "mud", Priority: PriorityHigh, Label: "muddy ground - slippery", Emoji: "⚠️"},

		// Medium.
		{Word: "door", Priority: PriorityMedium, Label: "door ahead", Emoji: "🚪"},
		{Word: "doorway", Priority: PriorityMedium, Label: "doorway ahead", Emoji: "🚪"},
		{Word: "entrance", Priority: PriorityMedium, Label: "entrance ahead", Emoji: "🚪"},
		{Word: "exit", Priority: PriorityMedium, Label: "exit ahead", Emoji: "🚪"},
		{Word: "gate", Priority: PriorityMedium, Label: "gate ahead", Emoji: "🚧"},
		{Word: "turnstile", Priority: PriorityMedium, Label: "turnstile ahead", Emoji: "🚧"},
		{Word: "wall", Priority: PriorityMedium, Label: "wall ahead - stop", Emoji: "🧱"},
		{Word: "fence", Priority: PriorityMedium, Label: "fence ahead", Emoji: "🚧"},
		{Word: "barrier", Priority: PriorityMedium, Label: "barrier ahead", Emoji: "🚧"},
		{Word: "bollard", Priority: PriorityMedium, Label: "bollard in path", Emoji: "🚧"},
		{Word: "pole", Priority: PriorityMedium, Label: "pole in path", Emoji: "⚠️"},
		{Word: "pillar", Priority: PriorityMedium, Label: "pillar ahead", Emoji: "⚠️"},
		{Word: "column", Priority: PriorityMedium, Label: "column ahead", Emoji: "⚠️"},
		{Word: "beam", Priority: PriorityMedium, Label: "beam overhead - duck", Emoji: "⚠️"},
		{Word: "pipe", Priority: PriorityMedium, Label: "pipe in path", Emoji: "⚠️"},
		{Word: "construction", Priority: PriorityMedium, Label: "construction zone - be careful", Emoji: "🏗️"},
		{Word: "scaffold", Priority: PriorityMedium, Label: "scaffolding overhead", Emoji: "🏗️"},
		{Word: "dog", Priority: PriorityMedium, Label: "dog nearby - approach carefully", Emoji: "🐕"},
		{Word: "animal", Priority: PriorityMedium, Label: "animal nearby - be cautious", Emoji: "🐾"},
		{Word: "snake", Priority: PriorityMedium, Label: "snake nearby - do not approach", Emoji: "🐍"},
		{Word: "person", Priority: PriorityMedium, Label: "person directly ahead - slow down", Emoji: "🧍"},
		{Word: "people", Priority: PriorityMedium, Label: "people ahead - slow down", Emoji: "👥"},
		{Word: "child", Priority: PriorityMedium, Label: "child nearby - be extra careful", Emoji: "👶"},
		{Word: "baby", Priority: PriorityMedium, Label: "baby nearby - be extra careful", Emoji: "👶"},
		{Word: "bicycle", Priority: PriorityMedium, Label: "bicycle nearby", Emoji: "🚲"},
		{Word: "bike", Priority: PriorityMedium, Label: "bicycle nearby", Emoji: "🚲"},
		{Word: "glass", Priority: PriorityMedium, Label: "glass nearby - be careful", Emoji: "⚠️"},
		{Word: "broken", Priority: PriorityMedium, Label: "broken object nearby", Emoji: "⚠️"},
		{Word: "sharp", Priority: PriorityMedium, Label: "sharp object nearby", Emoji: "⚠️"},
		{Word: "debris", Priority: PriorityMedium, Label: "debris on ground", Emoji: "⚠️"},
		{Word: "rubble", Priority: PriorityMedium, Label: "rubble on ground", Emoji: "⚠️"},

		// Low.
		{Word: "chair", Priority: PriorityLow, Label: "chair in path", Emoji: "🪑"},
		{Word: "stool", Priority: PriorityLow, Label: "stool in path", Emoji: "🪑"},
		{Word: "table", Priority: PriorityLow, Label: "table ahead", Emoji: "🪑"},
		{Word: "desk", Priority: PriorityLow, Label: "desk ahead", Emoji: "🪑"},
		{Word: "bench", Priority: PriorityLow, Label: "bench ahead", Emoji: "🪑"},
		{Word: "sofa", Priority: PriorityLow, Label: "sofa in path", Emoji: "🛋️"},
		{Word: "couch", Priority: PriorityLow, Label: "couch in path", Emoji: "🛋️"},
		{Word: "box", Priority: PriorityLow, Label: "box in path", Emoji: "📦"},
		{Word: "crate", Priority: PriorityLow, Label: "crate in path", Emoji: "📦"},
		{Word: "luggage", Priority: PriorityLow, Label: "luggage in path", Emoji: "🧳"},
		{Word: "suitcase", Priority: PriorityLow, Label: "suitcase in path", Emoji: "🧳"},
		{Word: "cord", Priority: PriorityLow, Label: "cord on ground - trip hazard", Emoji: "⚠️"},
		{Word: "cable", Priority: PriorityLow, Label: "cable on ground - trip hazard", Emoji: "⚠️"},
		{Word: "wire", Priority: PriorityLow, Label: "wire on ground - trip hazard", Emoji: "⚠️"},
		{Word: "hose", Priority: PriorityLow, Label: "hose on ground - trip hazard", Emoji: "⚠️"},
		{Word: "rope", Priority: PriorityLow, Label: "rope on ground - trip hazard", Emoji: "⚠️"},
		{Word: "mat", Priority: PriorityLow, Label: "mat on floor - edge risk", Emoji: "⚠️"},
		{Word: "rug", Priority: PriorityLow, Label: "rug on floor - edge risk", Emoji: "⚠️"},
		{Word: "carpet", Priority: PriorityLow, Label: "carpet edge - trip risk", Emoji: "⚠️"},
		{Word: "clutter", Priority: PriorityLow, Label: "clutter on floor", Emoji: "⚠️"},
	}
}
