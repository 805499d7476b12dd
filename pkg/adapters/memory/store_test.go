package memory_test

import (
	"testing"

	"github.com/aretw0/autopilot/pkg/adapters/memory"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
	"github.com/aretw0/autopilot/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStatusStoreContract(t, store)
}

func TestMemoryUnitRepository_Contract(t *testing.T) {
	units := []domain.Unit{
		{ID: "login", Nodes: []domain.Node{{ID: "a", Kind: domain.ActionWait}}},
		{ID: "export", Nodes: []domain.Node{{ID: "a", Kind: domain.ActionClick}, {ID: "b", Kind: domain.ActionWait}}},
	}
	repo, err := memory.NewUnitRepository(units...)
	require.NoError(t, err)

	tests.UnitRepositoryContractTest(t, repo, units)
}

func TestMemoryUnitRepository_RejectsMissingID(t *testing.T) {
	_, err := memory.NewUnitRepository(domain.Unit{Name: "anonymous"})
	assert.ErrorIs(t, err, domain.ErrInvalidUnit)
}
