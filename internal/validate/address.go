// Package validate implements the query-validator concern: address and
// numeric coercion, volume-string normalization, JSON hardening, and
// the complexity-score cap that gates expensive graph requests before
// any store or upstream work begins.
package validate

import (
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// Address validates addr and returns a typed error if it fails the
// shape or homograph check.
func Address(addr string) (string, error) {
	if !models.IsValidAddress(addr) {
		return "", apierr.New(apierr.CodeInvalidAddress, "address failed format or homograph validation")
	}
	return addr, nil
}
