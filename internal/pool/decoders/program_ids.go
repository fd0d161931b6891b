package decoders

// Program ids for the seven supported layouts, base58. Sourced from the
// upstream Rust agent's pool constants.
const (
	ProgramIDRaydiumCPMM      = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	ProgramIDRaydiumLegacyAMM = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	ProgramIDRaydiumCLMM      = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	ProgramIDMeteoraDAMMv2    = "cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG"
	ProgramIDMeteoraDLMM      = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	ProgramIDOrcaWhirlpool    = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	ProgramIDPumpFunAMM       = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
)
