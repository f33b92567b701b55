package rootcause

import "context"

// RankedSolution is one past fix SharedMemory associates with an error
// signature, ordered by how often it has succeeded.
type RankedSolution struct {
	ErrorSignature string
	FixSummary     string
	SuccessCount   int
}

// KnowledgeStore is the narrow slice of SharedMemory the analyzer reads
// from (spec §4.14); kept as a local interface so this package does not
// import pkg/sharedmemory directly.
type KnowledgeStore interface {
	RankedSolutions(errorSignature string) []RankedSolution
}

// WebSearchProvider is the opaque external search collaborator (spec §1);
// the analyzer treats it as a black box returning condensed text snippets.
type WebSearchProvider interface {
	Search(ctx context.Context, query string) ([]string, error)
}

const maxCondensedResults = 5

// Knowledge is step 4's artifact.
type Knowledge struct {
	PastSolutions []RankedSolution
	WebResults    []string
}

// retrieveKnowledge is step 4: rank past solutions for this error
// signature, then optionally supplement with an external search, both
// capped to maxCondensedResults so the synthesis prompt stays bounded.
func retrieveKnowledge(ctx context.Context, errorSignature string, store KnowledgeStore, search WebSearchProvider, useWebSearch bool) Knowledge {
	var k Knowledge
	if store != nil {
		solutions := store.RankedSolutions(errorSignature)
		if len(solutions) > maxCondensedResults {
			solutions = solutions[:maxCondensedResults]
		}
		k.PastSolutions = solutions
	}
	if useWebSearch && search != nil {
		if results, err := search.Search(ctx, errorSignature); err == nil {
			if len(results) > maxCondensedResults {
				results = results[:maxCondensedResults]
			}
			k.WebResults = results
		}
	}
	return k
}
