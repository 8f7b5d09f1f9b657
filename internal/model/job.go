package model

// JobName keys a job's saved progress in the ledger.
type JobName string

const (
	// JobSettle progress is the unix time liquidity points are settled up to.
	JobSettle JobName = "settler:liquidity"
	// JobLogSync progress is the last block whose logs are on disk.
	JobLogSync JobName = "logs:last_block"
)

// Settlement is one settlement run's ledger write. The boards and the job
// progress are applied together or not at all.
type Settlement struct {
	Liquidity []LeaderboardRow
	Total     []LeaderboardRow
	Job       JobName
	SettledAt uint64
	BatchSize int
}
