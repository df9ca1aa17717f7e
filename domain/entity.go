package domain

import "time"

// ID is the internal identifier of a document within a collection. It is
// assigned at insertion and never changes.
type ID uint32

// Entry is a stored document together with its identifier.
type Entry struct {
	ID  ID
	Doc *Document
}

// Op is a comparison operator used in a [Condition].
type Op string

const (
	OpEq     Op = "$eq"
	OpNe     Op = "$ne"
	OpGt     Op = "$gt"
	OpGte    Op = "$gte"
	OpLt     Op = "$lt"
	OpLte    Op = "$lte"
	OpIn     Op = "$in"
	OpNin    Op = "$nin"
	OpExists Op = "$exists"
)

// Condition is a single test of a field against a value. Field accepts dotted
// paths.
type Condition struct {
	Field string
	Op    Op
	Value Value
}

// Filter is a conjunction of conditions. An empty filter matches every
// document.
type Filter []Condition

// SortName represents a single field and the direction which should be used
// to sort it.
type SortName struct {
	Field string
	Desc  bool
}

// Sort represents an ordered list of fields which should be used to sort
// results, applied in sequence.
type Sort []SortName

// Query selects, orders and pages documents. Zero Limit means no limit.
type Query struct {
	Filter Filter
	Sort   Sort
	Skip   int
	Limit  int
	// Projection keeps the fields set to 1 or drops the fields set to 0.
	Projection map[string]uint8
}

// AccumulatorFunc names an aggregate function computed per group.
type AccumulatorFunc string

const (
	AccCount AccumulatorFunc = "$count"
	AccAvg   AccumulatorFunc = "$avg"
	AccSum   AccumulatorFunc = "$sum"
	AccMin   AccumulatorFunc = "$min"
	AccMax   AccumulatorFunc = "$max"
)

// Accumulator computes Func over Field for every group and stores the result
// under Name. Field is ignored by count.
type Accumulator struct {
	Name  string
	Func  AccumulatorFunc
	Field string
}

// Stage is one step of an aggregation pipeline. Exactly one of its fields is
// expected to be set.
type Stage struct {
	Match *Filter
	Group *GroupStage
	Sort  Sort
	Skip  int
	Limit int
}

// GroupStage partitions its input by the value of By.
type GroupStage struct {
	By           string
	Accumulators []Accumulator
}

// Pipeline is an ordered list of stages applied left to right.
type Pipeline []Stage

// MatchStage returns a stage filtering its input.
func MatchStage(f Filter) Stage { return Stage{Match: &f} }

// GroupBy returns a grouping stage.
func GroupBy(field string, accs ...Accumulator) Stage {
	return Stage{Group: &GroupStage{By: field, Accumulators: accs}}
}

// SortStage returns a sorting stage.
func SortStage(s ...SortName) Stage { return Stage{Sort: s} }

// SkipStage returns a stage dropping the first n results.
func SkipStage(n int) Stage { return Stage{Skip: n} }

// LimitStage returns a stage keeping the first n results.
func LimitStage(n int) Stage { return Stage{Limit: n} }

// InsertResult reports the outcome of one document of a batch insert.
type InsertResult struct {
	Index int
	ID    ID
	Err   error
}

// IndexDTO describes a persisted index.
type IndexDTO struct {
	FieldName string `json:"fieldName" docstore:"fieldName"`
	Unique    bool   `json:"unique" docstore:"unique,omitempty"`
}

// Record is one entry of a persisted change log. A record carries either a
// document state, a deletion, an index creation or an index removal.
type Record struct {
	ID           ID
	Doc          *Document
	Deleted      bool
	IndexCreated *IndexDTO
	IndexRemoved string
}

// SnapshotInfo describes a backup written by the database.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Collections int       `json:"collections"`
	Documents   int       `json:"documents"`
	Codec       string    `json:"codec"`
}
