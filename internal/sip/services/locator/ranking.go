package locator

import (
	"sort"

	"github.com/looneyapurv/siplocate/internal/sip/domain"
)

// srvRanker is the default Ranker: ascending priority first, then
// descending weight within a priority. Records comparing equal keep
// their input order. True weighted-random selection per RFC 2782 is
// deliberately not implemented; callers needing it can supply their
// own Ranker.
type srvRanker struct{}

func (srvRanker) Rank(records []domain.SRVRecord) []domain.SRVRecord {
	ranked := make([]domain.SRVRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority < ranked[j].Priority
		}
		return ranked[i].Weight > ranked[j].Weight
	})
	return ranked
}
