package payme

import (
	"encoding/json"
)

// Method names of the Payme merchant API.
const (
	MethodCheckPerformTransaction = "CheckPerformTransaction"
	MethodCreateTransaction       = "CreateTransaction"
	MethodPerformTransaction      = "PerformTransaction"
	MethodCancelTransaction       = "CancelTransaction"
	MethodCheckTransaction        = "CheckTransaction"
	MethodGetStatement            = "GetStatement"
)

// Account identifies what is being paid for. Payme forwards whatever
// the cashier form collected, so both fields are optional and loosely
// typed; contractId may even arrive as the literal string "null".
type Account struct {
	ContractID   string      `json:"contractId,omitempty"`
	AttendanceID json.Number `json:"attendanceId,omitempty"`
}

// Params is the union of all method parameter shapes. Amounts are in
// tiyin (fee times 100). From/To and Time are epoch milliseconds.
type Params struct {
	ID      string  `json:"id,omitempty"`
	Amount  int64   `json:"amount,omitempty"`
	Account Account `json:"account,omitempty"`
	Time    int64   `json:"time,omitempty"`
	Reason  *int    `json:"reason,omitempty"`
	From    int64   `json:"from,omitempty"`
	To      int64   `json:"to,omitempty"`
}

type Request struct {
	ID     json.Number `json:"id,omitempty"`
	Method string      `json:"method"`
	Params Params      `json:"params"`
}

// Response is the reply envelope. ID echoes the RPC id when present.
type Response struct {
	ID     json.Number `json:"id,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  *RPCError   `json:"error,omitempty"`
}

type CheckPerformResult struct {
	Allow bool `json:"allow"`
}

type CreateResult struct {
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
	CreateTime  int64  `json:"create_time"`
}

type PerformResult struct {
	Transaction string `json:"transaction"`
	PerformTime int64  `json:"perform_time"`
	State       int    `json:"state"`
}

type CancelResult struct {
	Transaction string `json:"transaction"`
	CancelTime  int64  `json:"cancel_time"`
	State       int    `json:"state"`
}

type CheckResult struct {
	Transaction string `json:"transaction"`
	CreateTime  int64  `json:"create_time"`
	PerformTime int64  `json:"perform_time"`
	CancelTime  int64  `json:"cancel_time"`
	State       int    `json:"state"`
	Reason      *int   `json:"reason"`
}

type StatementEntry struct {
	ID          string           `json:"id"`
	Time        int64            `json:"time"`
	Amount      int64            `json:"amount"`
	Account     StatementAccount `json:"account"`
	CreateTime  int64            `json:"create_time"`
	PerformTime int64            `json:"perform_time"`
	CancelTime  int64            `json:"cancel_time"`
	Transaction string           `json:"transaction"`
	State       int              `json:"state"`
	Reason      *int             `json:"reason"`
}

type StatementAccount struct {
	ContractID   *int64 `json:"contractId"`
	AttendanceID *int64 `json:"attendanceId"`
}

type StatementResult struct {
	Transactions []StatementEntry `json:"transactions"`
}
