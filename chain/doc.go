// Package chain holds the EVM primitives connectors exchange with their
// stores: chain identifiers reported as numbers or hex strings, and account
// addresses normalized to their EIP-55 checksum form.
package chain
