package services

import (
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/testkit"
)

// The in-memory repositories live in testkit so controller tests can
// reuse them. The aliases keep the service tests terse.

type memRefRepo = testkit.MemoryReferenceRepository

type memChangeRepo = testkit.MemoryChangeRequestRepository

func newMemRefRepo() *memRefRepo {
	return testkit.NewMemoryReferenceRepository()
}

func newMemChangeRepo() *memChangeRepo {
	return testkit.NewMemoryChangeRequestRepository()
}

var errDuplicateSubmit = testkit.ErrDuplicateSubmit
