package handlers

import (
	"gokaldbridge/bridge"
	"gokaldbridge/registry"
)

// HomeWallet is the home-ledger node wallet surface the API needs: custodian
// balance reporting and address pre-flight.
type HomeWallet interface {
	Balance() (float64, error)
	ValidateAddress(address string) (bool, error)
}

// Handler carries the bridge collaborators into the HTTP layer.
type Handler struct {
	engine *bridge.Engine
	agg    *bridge.Aggregator
	reg    *registry.Registry
	home   HomeWallet
}

func New(engine *bridge.Engine, agg *bridge.Aggregator, reg *registry.Registry, home HomeWallet) *Handler {
	return &Handler{engine: engine, agg: agg, reg: reg, home: home}
}
