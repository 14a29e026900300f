package relay

import (
	"github.com/newsrelay/newsrelay/core"
)

// Client message types accepted on the inbound side of a connection.
const (
	msgStartSearch = "start_search"
	msgStopSearch  = "stop_search"
	msgPing        = "ping"
	msgGetHistory  = "get_history"
)

// clientMessage is the inbound wire envelope. Query, sortBy and filter are
// only meaningful for start_search.
type clientMessage struct {
	Type   string            `json:"type"`
	Query  string            `json:"query,omitempty"`
	SortBy string            `json:"sortBy,omitempty"`
	Filter core.SourceFilter `json:"filter,omitempty"`
}

// Internal inbox messages. Everything the orchestrator reacts to is funneled
// through the inbox as one of these, a clientMessage-derived command, or an
// analysis.Reply.

type startSearchMsg struct {
	query  string
	sortBy core.SortMode
	filter core.SourceFilter
}

type stopSearchMsg struct{}

type pingMsg struct{}

type getHistoryMsg struct{}

// tickMsg is posted by the poll timer. Gen pins it to the search generation
// that armed it; a tick from a superseded generation is ignored.
type tickMsg struct {
	gen uint64
}

// fetchDoneMsg is posted by a fetch goroutine when the provider call returns.
type fetchDoneMsg struct {
	gen     uint64
	initial bool
	batch   *core.ResultBatch
	err     error
}
