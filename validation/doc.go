// Package validation checks request bodies and connector configs against
// their `validate` struct tags and turns failures into INVALID_INPUT
// AppErrors whose "fields" detail lists each rejected field.
//
// Besides the go-playground/validator tags, chain_id and eth_checksum check
// chain ids and account addresses:
//
//	type activateRequest struct {
//	    PreferredAuthType string `json:"preferred_auth_type" validate:"omitempty,max=64"`
//	    ChainID           uint64 `json:"chain_id" validate:"omitempty,chain_id"`
//	}
//	err := validation.Validate(req)
package validation
