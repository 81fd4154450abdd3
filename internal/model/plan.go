package model

// Explain represents the root of a PostgreSQL execution plan document.
type Explain struct {
	Plan          *PlanNode
	PlanningTime  float64
	ExecutionTime float64
}

// PlanNode captures one node in the execution plan tree.
type PlanNode struct {
	NodeType           string
	RelationName       string
	Schema             string
	Alias              string
	ParentRelationship string
	StartupCost        float64
	TotalCost          float64
	PlanRows           float64
	ActualTotalTime    float64
	ActualRows         float64
	ActualLoops        float64
	JoinType           string
	IndexName          string
	Filter             string
	Buffers            BufferMetrics
	Children           []*PlanNode
}

// BufferMetrics holds the ten page-level buffer counters reported per node.
// Counters are self-reported by the database for each node, not inclusive
// sums over children.
type BufferMetrics struct {
	SharedHit     int64 `json:"shared_hit"`
	SharedRead    int64 `json:"shared_read"`
	SharedDirtied int64 `json:"shared_dirtied"`
	SharedWritten int64 `json:"shared_written"`
	LocalHit      int64 `json:"local_hit"`
	LocalRead     int64 `json:"local_read"`
	LocalDirtied  int64 `json:"local_dirtied"`
	LocalWritten  int64 `json:"local_written"`
	TempRead      int64 `json:"temp_read"`
	TempWritten   int64 `json:"temp_written"`
}

// Add accumulates other into b field-wise. The zero value is the identity.
func (b *BufferMetrics) Add(other BufferMetrics) {
	b.SharedHit += other.SharedHit
	b.SharedRead += other.SharedRead
	b.SharedDirtied += other.SharedDirtied
	b.SharedWritten += other.SharedWritten
	b.LocalHit += other.LocalHit
	b.LocalRead += other.LocalRead
	b.LocalDirtied += other.LocalDirtied
	b.LocalWritten += other.LocalWritten
	b.TempRead += other.TempRead
	b.TempWritten += other.TempWritten
}

// Total returns the sum of all counters.
func (b BufferMetrics) Total() int64 {
	return b.SharedHit + b.SharedRead + b.SharedDirtied + b.SharedWritten +
		b.LocalHit + b.LocalRead + b.LocalDirtied + b.LocalWritten +
		b.TempRead + b.TempWritten
}

// ReadBlocks returns the blocks fetched from storage rather than cache.
func (b BufferMetrics) ReadBlocks() int64 {
	return b.SharedRead + b.LocalRead + b.TempRead
}

// HitBlocks returns the blocks served from the buffer cache.
func (b BufferMetrics) HitBlocks() int64 {
	return b.SharedHit + b.LocalHit
}

// TempOps returns temp-file block traffic, the usual sign of spills to disk.
func (b BufferMetrics) TempOps() int64 {
	return b.TempRead + b.TempWritten
}

// NodeMetrics is the per-operator cost record produced by the plan walk.
// Immutable once built.
type NodeMetrics struct {
	NodeType    string        `json:"node_type"`
	InclusiveMs float64       `json:"inclusive_ms"`
	SelfMs      float64       `json:"self_ms"`
	SelfRows    float64       `json:"self_rows"`
	Table       string        `json:"table,omitempty"`
	Index       string        `json:"index,omitempty"`
	Buffers     BufferMetrics `json:"buffers"`
}
