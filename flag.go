package jetdb

// hasFlag tests a flag bit of a row directory slot or long value descriptor.
func hasFlag(v, flag uint16) bool { return v&flag != 0 }
