package memory_test

import (
	"testing"

	"github.com/maxviazov/gamelog-sync/internal/repository/contract"
	"github.com/maxviazov/gamelog-sync/internal/repository/memory"
)

func makeRepos(t *testing.T) (contract.Repos, func()) {
	s := memory.New()
	return contract.Repos{
		GameLogs:  s.GameLogs(),
		Details:   s.Details(),
		Overrides: s.Overrides(),
		Tx:        s,
		Pinger:    s,
	}, func() {}
}

func TestGameLogRepository_MemoryContract(t *testing.T) {
	contract.RunGameLogRepositoryContract(t, makeRepos)
}

func TestDetailRepository_MemoryContract(t *testing.T) {
	contract.RunDetailRepositoryContract(t, makeRepos)
}

func TestOverrideRepository_MemoryContract(t *testing.T) {
	contract.RunOverrideRepositoryContract(t, makeRepos)
}

func TestTxManager_MemoryContract(t *testing.T) {
	contract.RunTxManagerContract(t, makeRepos)
}

func TestPinger_MemoryContract(t *testing.T) {
	contract.RunPingerContract(t, makeRepos)
}
