package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/looneyapurv/siplocate/internal/sip/domain"
)

func TestSRVRanker_PriorityAscendingWeightDescending(t *testing.T) {
	in := []domain.SRVRecord{
		{Priority: 20, Weight: 0, Port: 5060, Target: "d."},
		{Priority: 10, Weight: 10, Port: 5060, Target: "b."},
		{Priority: 10, Weight: 60, Port: 5060, Target: "a."},
		{Priority: 15, Weight: 100, Port: 5060, Target: "c."},
	}

	got := srvRanker{}.Rank(in)

	targets := make([]string, 0, len(got))
	for _, r := range got {
		targets = append(targets, r.Target)
	}
	assert.Equal(t, []string{"a.", "b.", "c.", "d."}, targets)
}

func TestSRVRanker_EqualRecordsKeepInputOrder(t *testing.T) {
	in := []domain.SRVRecord{
		{Priority: 10, Weight: 5, Port: 5060, Target: "first."},
		{Priority: 10, Weight: 5, Port: 5070, Target: "second."},
		{Priority: 10, Weight: 5, Port: 5080, Target: "third."},
	}

	got := srvRanker{}.Rank(in)

	assert.Equal(t, "first.", got[0].Target)
	assert.Equal(t, "second.", got[1].Target)
	assert.Equal(t, "third.", got[2].Target)
}

func TestSRVRanker_DoesNotMutateInput(t *testing.T) {
	in := []domain.SRVRecord{
		{Priority: 20, Target: "b."},
		{Priority: 10, Target: "a."},
	}

	srvRanker{}.Rank(in)

	assert.Equal(t, "b.", in[0].Target)
	assert.Equal(t, "a.", in[1].Target)
}

func TestSRVRanker_EmptyInput(t *testing.T) {
	got := srvRanker{}.Rank(nil)
	assert.Empty(t, got)
}
