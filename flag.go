package blockfile

func setFlag(b, flag int) int   { return b | flag }
func clearFlag(b, flag int) int { return b &^ flag }
