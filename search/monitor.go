package search

import "github.com/poiesic/cardseek/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Rows are card rows in the catalog.
type SearchMonitor interface {
	Start(query core.Query)
	QueryResolved(matched *core.Card, notice string)
	AfterCandidateFetch(rows []int)
	AfterExclusion(rows []int)
	AfterScoring(hits []core.Hit)
	Finish(result *core.Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                    {}
func (n *noopMonitor) QueryResolved(_ *core.Card, _ string) {}
func (n *noopMonitor) AfterCandidateFetch(_ []int)          {}
func (n *noopMonitor) AfterExclusion(_ []int)               {}
func (n *noopMonitor) AfterScoring(_ []core.Hit)            {}
func (n *noopMonitor) Finish(_ *core.Result)                {}
