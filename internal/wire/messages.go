// Package wire defines the four inter-node message schemas (SS between
// e-commerce nodes, SL from e-commerce to local-shop, LS from local-shop to
// e-commerce, and DB between an e-commerce leader and the database) plus
// the newline-delimited JSON codec they travel over. See spec §4.1.
package wire

import (
	"encoding/json"

	"github.com/ferriscommerce/fabric/internal/model"
)

// Type is the JSON discriminator carried by every envelope.
type Type string

const (
	// SS: e-commerce <-> e-commerce
	TakeMyID                          Type = "TakeMyId"
	ElectLeader                       Type = "ElectLeader"
	SelectedLeader                    Type = "SelectedLeader"
	DelegateAskForStockProductToLeader Type = "DelegateAskForStockProductToLeader"
	SolvedAskForStockProduct          Type = "SolvedAskForStockProduct"
	DelegateOrderToLeader             Type = "DelegateOrderToLeader"
	SolvedPreviouslyDelegatedOrder    Type = "SolvedPreviouslyDelegatedOrder"
	CannotDispatchPreviouslyDelegatedOrder Type = "CannotDispatchPreviouslyDelegatedOrder"

	// SL: e-commerce -> local-shop
	LeaderMessage               Type = "LeaderMessage"
	LocalSuccessfullyRegistered Type = "LocalSuccessfullyRegistered"
	LocalSuccessfullyLoggedIn   Type = "LocalSuccessfullyLoggedIn"
	AskAllStock                 Type = "AskAllStock"
	WorkNewOrder                Type = "WorkNewOrder"

	// LS: local-shop -> e-commerce
	AskLeaderMessage   Type = "AskLeaderMessage"
	RegisterLocal      Type = "RegisterLocalMessage"
	LoginLocal         Type = "LoginLocalMessage"
	Stock              Type = "Stock"
	OrderCompleted     Type = "OrderCompleted"
	OrderCancelled     Type = "OrderCancelled"

	// DB: e-commerce <-> database
	TakeMyEcommerceID              Type = "TakeMyEcommerceId"
	GetNewLocalID                  Type = "GetNewLocalId"
	CheckLocalID                   Type = "CheckLocalId"
	PostStockFromLocal             Type = "PostStockFromLocal"
	PostOrderResult                Type = "PostOrderResult"
	GetProductQuantityFromAllLocals Type = "GetProductQuantityFromAllLocals"
	NewLocalID                     Type = "NewLocalId"
	ProductQuantityFromAllLocals   Type = "ProductQuantityFromAllLocals"
)

// Envelope is the outer shape of every line on the wire: a type tag plus a
// raw payload that each concrete message (de)serializes independently.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- SS payloads ---

type TakeMyIDPayload struct {
	SSID uint16 `json:"ss_id"`
	SLID uint16 `json:"sl_id"`
}

type ElectLeaderPayload struct {
	RequestorID uint16 `json:"requestor_id"`
}

type SelectedLeaderPayload struct {
	LeaderSSID uint16 `json:"leader_ss_id"`
	LeaderSLID uint16 `json:"leader_sl_id"`
}

type DelegateAskForStockProductToLeaderPayload struct {
	RequestorSSID    uint16 `json:"requestor_ss_id"`
	RequestorWorkerID uint16 `json:"requestor_worker_id"`
	ProductName      string `json:"product_name"`
}

type SolvedAskForStockProductPayload struct {
	RequestorSSID     uint16         `json:"requestor_ss_id"`
	RequestorWorkerID uint16         `json:"requestor_worker_id"`
	ProductName       string         `json:"product_name"`
	Stock             map[uint16]int `json:"stock"`
}

type DelegateOrderToLeaderPayload struct {
	Order model.Order `json:"order"`
}

type SolvedPreviouslyDelegatedOrderPayload struct {
	Order       model.Order `json:"order"`
	WasCompleted bool       `json:"was_completed"`
}

type CannotDispatchPreviouslyDelegatedOrderPayload struct {
	Order model.Order `json:"order"`
}

// --- SL payloads ---

type LeaderMessagePayload struct {
	LeaderSLID uint16 `json:"leader_sl_id"`
}

type LocalSuccessfullyRegisteredPayload struct {
	LocalID uint16 `json:"local_id"`
}

type AskAllStockPayload struct{}

type WorkNewOrderPayload struct {
	Order model.Order `json:"order"`
}

// --- LS payloads ---

type AskLeaderMessagePayload struct{}

type RegisterLocalPayload struct{}

type LoginLocalPayload struct {
	LocalID uint16 `json:"local_id"`
}

type StockPayload struct {
	Stock model.Stock `json:"stock"`
}

type OrderCompletedPayload struct {
	Order model.Order `json:"order"`
}

type OrderCancelledPayload struct {
	Order model.Order `json:"order"`
}

// --- DB payloads ---

type TakeMyEcommerceIDPayload struct {
	SSID uint16 `json:"ss_id"`
}

type GetNewLocalIDPayload struct{}

type CheckLocalIDPayload struct {
	LocalID uint16 `json:"local_id"`
}

type PostStockFromLocalPayload struct {
	LocalID uint16      `json:"local_id"`
	Stock   model.Stock `json:"stock"`
}

// PostOrderResultPayload reports the outcome of one order to the D-node.
// LocalID is filled in by the leader relaying the result, copied from the
// order's AssignedLocalID: the local shop stamps its own local_id into that
// field on every order (local or web) before reporting it to the leader.
type PostOrderResultPayload struct {
	LocalID   uint16      `json:"local_id"`
	Order     model.Order `json:"order"`
	Completed bool        `json:"completed"`
}

type GetProductQuantityFromAllLocalsPayload struct {
	SSID        uint16 `json:"ss_id"`
	WorkerID    uint16 `json:"worker_id"`
	ProductName string `json:"product_name"`
}

type NewLocalIDPayload struct {
	LocalID uint16 `json:"local_id"`
}

type ProductQuantityFromAllLocalsPayload struct {
	SSID        uint16         `json:"ss_id"`
	WorkerID    uint16         `json:"worker_id"`
	ProductName string         `json:"product_name"`
	Stock       map[uint16]int `json:"stock"`
}
