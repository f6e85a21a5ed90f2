package settlement

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const externalIDPrefix = "PMP-"

// ExternalID выводит стабильный идентификатор сделки для биддеров из id переговоров.
func ExternalID(negotiationID uuid.UUID) string {
	sum := blake2b.Sum256(negotiationID[:])
	return externalIDPrefix + strings.ToUpper(hex.EncodeToString(sum[:10]))
}
