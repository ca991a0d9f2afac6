package state

import (
	"github.com/n3ledger/n3core/pkg/smartcontract/trigger"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

// NotificationEvent is one System.Runtime.Notify call raised during a
// contract's execution (spec §4.2 "Notifications").
type NotificationEvent struct {
	ScriptHash util.Uint160
	Name       string
	Item       *stackitem.Array
}

// AppExecResult is the recorded outcome of running one trigger
// (OnPersist/PostPersist/Application/Verification) against a
// transaction or block, kept for RPC replay and for the ApplicationLog
// index (spec §4.4 "Persistence pipeline").
type AppExecResult struct {
	TxHash        util.Uint256 // zero for block-level triggers
	Trigger       trigger.Type
	VMState       string
	GasConsumed   int64
	Stack         []stackitem.Item
	Notifications []NotificationEvent
	FaultException string
}
