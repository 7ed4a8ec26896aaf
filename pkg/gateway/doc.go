// Package gateway is the contract between billing and an external payment
// processor. Adapters live in subpackages (asaas, paddle) with a testify
// fake in gatewaytest. Each adapter maps its processor's statuses onto
// Status before anything leaves the package.
package gateway
