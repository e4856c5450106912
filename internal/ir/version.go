package ir

// EngineVersion is the factstore release version reported by the CLI.
const EngineVersion = "0.1.0"
