// Package jwt manages access- and refresh-token issuance and verification using a configured
// symmetric signing secret and strict validation semantics suitable for low-latency authentication paths.
package jwt
