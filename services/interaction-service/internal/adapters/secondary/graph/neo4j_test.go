package graph

import (
	"testing"

	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelateQuery(t *testing.T) {
	q, err := relateQuery(domain.RelFollows)
	require.NoError(t, err)
	assert.Contains(t, q, "MERGE (a)-[r:FOLLOWS]->(b)")

	q, err = unrelateQuery(domain.RelBlocks)
	require.NoError(t, err)
	assert.Contains(t, q, "-[r:BLOCKS]->")
}

func TestRelateQuery_RejectsUnknownRelation(t *testing.T) {
	_, err := relateQuery("LIKES]->(x) DETACH DELETE x //")
	assert.Error(t, err)
	_, err = unrelateQuery("")
	assert.Error(t, err)
}
