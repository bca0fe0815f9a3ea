package device

import (
	"time"

	"github.com/google/uuid"
)

// Generation is a bound device's initialization time plus a unique
// token, adapted from pkg/blobserver/interface.go's Generationer
// contract (StorageGeneration() (initTime, random, err)): a caller
// that observes the same Generation across two binds knows it is
// talking to the same device instance and hasn't missed a reset.
type Generation struct {
	InitTime time.Time
	Token    string
}

// NewGeneration mints a fresh generation token.
func NewGeneration() Generation {
	return Generation{InitTime: time.Now(), Token: uuid.NewString()}
}
