package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Anonymizer derives stable pseudonyms for addresses, keyed by salt, so
// exported reports can reference a counterparty without disclosing its
// real address. The mapping is deterministic per salt but not
// reversible without it.
type Anonymizer struct {
	salt []byte
}

// NewAnonymizer builds an Anonymizer from ANONYMIZATION_SALT. An empty
// salt still produces stable, deterministic pseudonyms; it is the
// operator's responsibility to configure a real secret in production.
func NewAnonymizer(salt string) *Anonymizer {
	return &Anonymizer{salt: []byte(salt)}
}

// Pseudonym returns a stable "addr_<hex>" label for address, derived
// via HMAC-SHA256(salt, address) truncated to 10 bytes. Two calls with
// the same salt and address always agree; different salts never agree.
func (a *Anonymizer) Pseudonym(address string) string {
	mac := hmac.New(sha256.New, a.salt)
	mac.Write([]byte(address))
	sum := mac.Sum(nil)
	return "addr_" + hex.EncodeToString(sum[:10])
}
