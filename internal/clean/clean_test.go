package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanAllDeduplicates(t *testing.T) {
	p := Plan{
		Orphaned:   []string{"jaspr/main/aaa", "jaspr/main/bbb"},
		Abandoned:  []string{"jaspr/main/bbb", "jaspr/main/ccc"},
		EmptyNamed: []string{"jaspr-named/main/stack1"},
	}
	all := p.All()
	assert.ElementsMatch(t, []string{
		"jaspr/main/aaa", "jaspr/main/bbb", "jaspr/main/ccc", "jaspr-named/main/stack1",
	}, all)
	assert.Len(t, all, 4)
}

func TestPlanAllEmpty(t *testing.T) {
	assert.Empty(t, Plan{}.All())
}
