package cache

// Keyer builds cache keys for the entry kinds the pipeline stores.
type Keyer interface {
	// ScheduleKey identifies a scheduling result for a problem hash and the
	// scheduler options that influence the result.
	ScheduleKey(problemHash string, opts ScheduleKeyOpts) string
	// ArtifactKey identifies a rendered artifact of a scheduled problem.
	ArtifactKey(scheduleHash string, opts ArtifactKeyOpts) string
}

// ScheduleKeyOpts are the scheduler options that change a result.
type ScheduleKeyOpts struct {
	Priority          string `json:"priority"`
	MaxIterations     int    `json:"max_iterations"`
	CycleBudgetFactor int    `json:"cycle_budget_factor"`
	Resources         string `json:"resources"`
	Reduce            bool   `json:"reduce,omitempty"`
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer hashes key components into "kind:sha256" strings.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ScheduleKey implements [Keyer].
func (DefaultKeyer) ScheduleKey(problemHash string, opts ScheduleKeyOpts) string {
	return hashKey("schedule", problemHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(scheduleHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", scheduleHash, opts)
}

var _ Keyer = DefaultKeyer{}
