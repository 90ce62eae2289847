package common

const (
	// ScanLockKey is the global single-flight lock for scan jobs.
	ScanLockKey = "engine.scan"
	// MarketEstimateLockPrefix prefixes per-market estimation dedup locks.
	MarketEstimateLockPrefix = "engine.estimate.market."
)
